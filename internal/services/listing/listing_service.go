package listing

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/db"
	"github.com/rajivgeraev/realty-api/internal/middleware"
	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/policy"
	"github.com/rajivgeraev/realty-api/internal/services/cascade"
	"github.com/rajivgeraev/realty-api/internal/store"
	"github.com/rajivgeraev/realty-api/internal/utils"
)

const maxImageSize = 10 << 20

// CreateInput - данные нового объекта
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Kind        string `json:"kind"`
	Price       int64  `json:"price"`
}

// ListingService представляет сервис для работы с объектами недвижимости
type ListingService struct {
	store      store.Store
	blobs      store.BlobStore
	cascade    *cascade.CascadeService
	jwtService *utils.JWTService
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(cfg *config.Config, st store.Store, blobs store.BlobStore, cs *cascade.CascadeService) *ListingService {
	return &ListingService{
		store:      st,
		blobs:      blobs,
		cascade:    cs,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// Create создаёт доступный объект, владелец - ownerID
func (s *ListingService) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Listing, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: название обязательно", models.ErrInvalidInput)
	}
	kind := models.ListingKind(in.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: вид объекта должен быть for_sale или for_rent", models.ErrInvalidInput)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: цена не может быть отрицательной", models.ErrInvalidInput)
	}

	now := time.Now().UTC()
	l := &models.Listing{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        in.Title,
		Description:  in.Description,
		Address:      in.Address,
		Kind:         kind,
		Availability: models.Available,
		Price:        in.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, ownerID); err != nil {
			return err
		}
		return tx.CreateListing(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// AttachImage загружает изображение и привязывает его к объекту.
// Прежнее изображение удаляется после фиксации, ошибка удаления только логируется.
func (s *ListingService) AttachImage(ctx context.Context, actorID, listingID uuid.UUID, data []byte, name string) (*models.Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !policy.IsOwner(listing, actorID) {
		return nil, models.ErrForbidden
	}

	ref, err := s.blobs.Store(ctx, data, listingID.String()+"-"+name)
	if err != nil {
		return nil, err
	}
	imageURL, err := s.blobs.URL(ref)
	if err != nil {
		return nil, err
	}

	var previous string
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		locked, err := tx.LockListing(ctx, listingID)
		if err != nil {
			return err
		}
		previous = locked.ImageRef
		return tx.SetListingImage(ctx, listingID, ref, imageURL)
	})
	if err != nil {
		// объект удалён, пока шла загрузка
		if derr := s.blobs.Delete(ctx, ref); derr != nil {
			log.Printf("Не удалось удалить изображение %s: %v", ref, derr)
		}
		return nil, err
	}

	if previous != "" && previous != ref {
		if err := s.blobs.Delete(ctx, previous); err != nil {
			log.Printf("Не удалось удалить прежнее изображение %s: %v", previous, err)
		}
	}

	return s.store.GetListing(ctx, listingID)
}

// CreateListing обрабатывает создание нового объекта
func (s *ListingService) CreateListing(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var requestData CreateInput
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := s.Create(ctx, userID, requestData)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"listing": listing,
		"message": "Объявление успешно создано",
	})
}

// GetMyListings возвращает список объектов текущего пользователя
func (s *ListingService) GetMyListings(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	filter := pageFilter(c)
	filter.OwnerID = userID
	if status := c.Query("availability", "all"); status != "all" {
		filter.Availability = models.Availability(status)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listings, err := s.store.ListListings(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// GetPublicListings возвращает доступные объекты
func (s *ListingService) GetPublicListings(c fiber.Ctx) error {
	filter := pageFilter(c)
	filter.Availability = models.Available

	ctx, cancel := db.GetContext()
	defer cancel()

	listings, err := s.store.ListListings(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// GetListing возвращает детальную информацию об объекте
func (s *ListingService) GetListing(c fiber.Ctx) error {
	listingID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"listing": listing})
}

// UploadImage принимает файл image из multipart-формы
func (s *ListingService) UploadImage(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	listingID, err := middleware.ParamID(c, "id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Файл image не передан"})
	}
	if file.Size > maxImageSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Файл слишком большой"})
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listing, err := s.AttachImage(ctx, userID, listingID, data, strconv.FormatInt(time.Now().Unix(), 10))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"listing": listing,
	})
}

func pageFilter(c fiber.Ctx) store.ListingFilter {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return store.ListingFilter{Limit: limit, Offset: offset}
}
