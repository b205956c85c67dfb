package request

import (
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/realty-api/internal/db"
	"github.com/rajivgeraev/realty-api/internal/middleware"
	"github.com/rajivgeraev/realty-api/internal/models"
)

type submitBody struct {
	ListingID string `json:"listing_id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Message   string `json:"message"`
}

// SubmitRequest создаёт заявку на покупку или аренду
func (s *RequestService) SubmitRequest(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var body submitBody
	if err := c.Bind().Body(&body); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	listingID, err := middleware.ParseID(body.ListingID, "listing_id")
	if err != nil {
		return err
	}

	reqType := models.RequestType(body.Type)
	if !reqType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Тип заявки должен быть buy или rent"})
	}

	if body.Name == "" || (body.Email == "" && body.Phone == "") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите имя и email или телефон"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := s.Submit(ctx, SubmitInput{
		ListingID:   listingID,
		RequesterID: userID,
		Type:        reqType,
		Contact: models.ContactInfo{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   body.Phone,
			Address: body.Address,
		},
		Message: body.Message,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"request": req,
		"message": "Заявка успешно отправлена",
	})
}

// GetMyRequests возвращает входящие и/или исходящие заявки
func (s *RequestService) GetMyRequests(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	box := c.Query("box", "all") // all, incoming, outgoing

	ctx, cancel := db.GetContext()
	defer cancel()

	result := fiber.Map{"success": true}

	if box == "all" || box == "incoming" {
		incoming, err := s.ListIncoming(ctx, userID)
		if err != nil {
			return err
		}
		result["incoming"] = incoming
	}
	if box == "all" || box == "outgoing" {
		outgoing, err := s.ListOutgoing(ctx, userID)
		if err != nil {
			return err
		}
		result["outgoing"] = outgoing
	}
	if len(result) == 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Параметр box должен быть all, incoming или outgoing"})
	}

	return c.JSON(result)
}

// GetRequestByID возвращает заявку продавцу или заявителю
func (s *RequestService) GetRequestByID(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	requestID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := s.GetRequest(ctx, requestID, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "request": req})
}

// AcceptRequest принимает заявку и возвращает созданную сделку
func (s *RequestService) AcceptRequest(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	requestID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	txn, err := s.Accept(ctx, requestID, userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"transaction": txn,
		"message":     "Заявка принята",
	})
}

// RejectRequest отклоняет заявку
func (s *RequestService) RejectRequest(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	requestID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := s.Reject(ctx, requestID, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"request": req,
		"message": "Заявка отклонена",
	})
}

// GetMyTransactions возвращает сделки пользователя как покупателя или как владельца
func (s *RequestService) GetMyTransactions(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	role := c.Query("role", "buyer") // buyer, owner
	typ := models.TransactionType(c.Query("type", ""))
	if typ != "" && typ != models.TransactionSold && typ != models.TransactionRented {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Параметр type должен быть sold или rented"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var txns []models.Transaction
	switch role {
	case "buyer":
		txns, err = s.ListPurchases(ctx, userID, typ)
	case "owner":
		txns, err = s.ListSales(ctx, userID, typ)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Параметр role должен быть buyer или owner"})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": txns,
	})
}
