package favorite

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/db"
	"github.com/rajivgeraev/realty-api/internal/middleware"
	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/store"
	"github.com/rajivgeraev/realty-api/internal/utils"
)

// FavoriteService представляет сервис для работы с избранными объектами
type FavoriteService struct {
	store      store.Store
	jwtService *utils.JWTService
}

// NewFavoriteService создает новый экземпляр FavoriteService
func NewFavoriteService(cfg *config.Config, st store.Store) *FavoriteService {
	return &FavoriteService{
		store:      st,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// Add добавляет объект в избранное. Повторное добавление не ошибка.
// Пользователь и объект проверяются в той же единице, что и вставка.
func (s *FavoriteService) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.GetListing(ctx, listingID); err != nil {
			return err
		}

		_, err := tx.GetFavorite(ctx, userID, listingID)
		if err == nil {
			return models.ErrConflict
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		return tx.CreateFavorite(ctx, &models.Favorite{
			ID:        uuid.New(),
			UserID:    userID,
			ListingID: listingID,
			CreatedAt: time.Now().UTC(),
		})
	})
	if errors.Is(err, models.ErrConflict) {
		return nil
	}
	return err
}

// Remove убирает объект из избранного
func (s *FavoriteService) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	return s.store.Atomic(ctx, func(tx store.Tx) error {
		removed, err := tx.DeleteFavorite(ctx, userID, listingID)
		if err != nil {
			return err
		}
		if !removed {
			return models.ErrNotFound
		}
		return nil
	})
}

// Toggle добавляет объект в избранное или убирает его оттуда.
// Возвращает новое состояние.
func (s *FavoriteService) Toggle(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	exists, err := s.IsFavorite(ctx, userID, listingID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, s.Remove(ctx, userID, listingID)
	}
	return true, s.Add(ctx, userID, listingID)
}

// IsFavorite проверяет, находится ли объект в избранном
func (s *FavoriteService) IsFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	_, err := s.store.GetFavorite(ctx, userID, listingID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddToFavorites добавляет объявление в избранное
func (s *FavoriteService) AddToFavorites(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var requestData struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	listingID, err := middleware.ParseID(requestData.ListingID, "listing_id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.Add(ctx, userID, listingID); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Объявление добавлено в избранное",
	})
}

// RemoveFromFavorites удаляет объявление из избранного
func (s *FavoriteService) RemoveFromFavorites(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	listingID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.Remove(ctx, userID, listingID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление удалено из избранного",
	})
}

// ToggleFavorite переключает объявление в избранном
func (s *FavoriteService) ToggleFavorite(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	listingID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	added, err := s.Toggle(ctx, userID, listingID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"is_favorite": added,
	})
}

// GetFavorites возвращает избранные объявления пользователя
func (s *FavoriteService) GetFavorites(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	favorites, err := s.store.ListFavorites(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"favorites": favorites,
	})
}

// CheckFavorite проверяет, находится ли объявление в избранном
func (s *FavoriteService) CheckFavorite(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	listingID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	ok, err := s.IsFavorite(ctx, userID, listingID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"is_favorite": ok})
}
