package cascade

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/realty-api/internal/db"
	"github.com/rajivgeraev/realty-api/internal/middleware"
)

// DeleteListingHandler удаляет объект по ID из маршрута
func (s *CascadeService) DeleteListingHandler(c fiber.Ctx) error {
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

	actor, err := s.ResolveActor(ctx, userID)
	if err != nil {
		return err
	}

	report, err := s.DeleteListing(ctx, actor, listingID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
		"message": "Объявление успешно удалено",
	})
}

// DeleteUserHandler удаляет учётную запись вместе со всеми данными
func (s *CascadeService) DeleteUserHandler(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	targetID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	actor, err := s.ResolveActor(ctx, userID)
	if err != nil {
		return err
	}

	report, err := s.DeleteUser(ctx, actor, targetID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
		"message": "Учётная запись удалена",
	})
}
