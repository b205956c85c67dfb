package cascade

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/realty-api/internal/middleware"
)

// SetupRoutes настраивает маршрут удаления учётной записи.
// Удаление объекта регистрирует сервис объявлений через DeleteListingHandler.
func (s *CascadeService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/users")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Delete("/:id", s.DeleteUserHandler)
}
