package middleware

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/realty-api/internal/models"
)

var statusByError = []struct {
	err  error
	code int
}{
	{models.ErrUnauthorized, fiber.StatusUnauthorized},
	{models.ErrForbidden, fiber.StatusForbidden},
	{models.ErrNotFound, fiber.StatusNotFound},
	{models.ErrInvalidInput, fiber.StatusBadRequest},
	{models.ErrTypeMismatch, fiber.StatusBadRequest},
	{models.ErrSelfDealing, fiber.StatusBadRequest},
	{models.ErrNotAvailable, fiber.StatusConflict},
	{models.ErrDuplicatePending, fiber.StatusConflict},
	{models.ErrAlreadyResolved, fiber.StatusConflict},
	{models.ErrConflict, fiber.StatusConflict},
	{models.ErrInvalidTransition, fiber.StatusConflict},
	{models.ErrCascadeFailed, fiber.StatusInternalServerError},
}

// StatusCode сопоставляет ошибку с HTTP-статусом
func StatusCode(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler обрабатывает ошибки, возвращённые обработчиками
func ErrorHandler(c fiber.Ctx, err error) error {
	code := StatusCode(err)

	message := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Printf("Внутренняя ошибка %s %s: %v", c.Method(), c.Path(), err)
		message = "Внутренняя ошибка сервера"
		if errors.Is(err, models.ErrCascadeFailed) {
			message = models.ErrCascadeFailed.Error()
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
