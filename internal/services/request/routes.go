package request

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/realty-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для заявок и сделок
func (s *RequestService) SetupRoutes(app *fiber.App) {
	auth := middleware.AuthMiddleware(s.jwtService)

	requests := app.Group("/api/requests")
	requests.Use(auth)

	requests.Post("/", s.SubmitRequest)
	requests.Get("/", s.GetMyRequests)
	requests.Get("/:id", s.GetRequestByID)
	requests.Post("/:id/accept", s.AcceptRequest)
	requests.Post("/:id/reject", s.RejectRequest)

	transactions := app.Group("/api/transactions")
	transactions.Use(auth)

	transactions.Get("/", s.GetMyTransactions)
}
