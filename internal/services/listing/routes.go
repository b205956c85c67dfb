package listing

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/realty-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API объектов
func (s *ListingService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/listings")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/create", s.CreateListing)
	api.Get("/my", s.GetMyListings)
	api.Get("/:id", s.GetListing)
	api.Post("/:id/image", s.UploadImage)

	// Удаление каскадное: заявки, сделки, избранное и изображение
	api.Delete("/:id", s.cascade.DeleteListingHandler)
}

// SetupPublicRoutes настраивает публичные маршруты для объектов
func (s *ListingService) SetupPublicRoutes(app *fiber.App) {
	app.Get("/api/listings", s.GetPublicListings)
}
