package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/db"
	"github.com/rajivgeraev/realty-api/internal/services/cascade"
	"github.com/rajivgeraev/realty-api/internal/services/cloudinary"
	"github.com/rajivgeraev/realty-api/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "realty-admin",
		Short: "Служебные команды Realty API",
	}

	rootCmd.AddCommand(migrateCmd(), deleteUserCmd(), deleteListingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции схемы",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// OpenStore применяет миграции для любого драйвера
			_, closeStore, err := db.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			log.Printf("✅ Схема актуальна (драйвер %s)", cfg.DBDriver)
			return nil
		},
	}
}

func deleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <user-id>",
		Short: "Удалить пользователя со всеми объектами, заявками и сделками",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("неверный ID пользователя: %w", err)
			}
			return withCascade(cmd.Context(), func(ctx context.Context, svc *cascade.CascadeService) (*cascade.Report, error) {
				return svc.DeleteUser(ctx, cascade.SystemActor, id)
			})
		},
	}
}

func deleteListingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-listing <listing-id>",
		Short: "Удалить объект с избранным, заявками, сделками и изображением",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("неверный ID объекта: %w", err)
			}
			return withCascade(cmd.Context(), func(ctx context.Context, svc *cascade.CascadeService) (*cascade.Report, error) {
				return svc.DeleteListing(ctx, cascade.SystemActor, id)
			})
		},
	}
}

func withCascade(ctx context.Context, fn func(context.Context, *cascade.CascadeService) (*cascade.Report, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, closeStore, err := db.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var blobs store.BlobStore
	if cfg.CloudinaryConfig.CloudName != "" {
		cs, err := cloudinary.NewCloudinaryService(cfg)
		if err != nil {
			return err
		}
		blobs = cs
	} else {
		log.Println("⚠️ Cloudinary не настроен, изображения не будут удалены")
	}

	report, err := fn(ctx, cascade.NewCascadeService(cfg, st, blobs))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
