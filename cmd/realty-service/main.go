package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/db"
	"github.com/rajivgeraev/realty-api/internal/middleware"
	"github.com/rajivgeraev/realty-api/internal/services/auth"
	"github.com/rajivgeraev/realty-api/internal/services/cascade"
	"github.com/rajivgeraev/realty-api/internal/services/cloudinary"
	"github.com/rajivgeraev/realty-api/internal/services/favorite"
	"github.com/rajivgeraev/realty-api/internal/services/listing"
	"github.com/rajivgeraev/realty-api/internal/services/request"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем хранилище
	st, closeStore, err := db.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer closeStore()

	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Realty API",
		ErrorHandler: middleware.ErrorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	authService := auth.NewAuthService(cfg, st)
	cascadeService := cascade.NewCascadeService(cfg, st, cloudinaryService)
	listingService := listing.NewListingService(cfg, st, cloudinaryService, cascadeService)
	requestService := request.NewRequestService(cfg, st)
	favoriteService := favorite.NewFavoriteService(cfg, st)

	// Публичные маршруты регистрируются раньше защищённых групп с тем же префиксом
	listingService.SetupPublicRoutes(app)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	listingService.SetupRoutes(app)
	requestService.SetupRoutes(app)
	favoriteService.SetupRoutes(app)
	cascadeService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// Запускаем сервер
	log.Printf("✅ Realty API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
