package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/models"
)

// ParseID разбирает UUID из тела или строки запроса
func ParseID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: неверный формат %s", models.ErrInvalidInput, name)
	}
	return id, nil
}

// ParamID разбирает UUID из параметра маршрута
func ParamID(c fiber.Ctx, name string) (uuid.UUID, error) {
	return ParseID(c.Params(name), name)
}
