package cloudinary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/store"
	"github.com/rajivgeraev/realty-api/internal/utils"
)

// CloudinaryService хранит изображения объектов в Cloudinary
type CloudinaryService struct {
	cfg          *config.Config
	client       *cld.Cloudinary
	jwtService   *utils.JWTService
	uploadFolder string
	uploadPreset string
}

var _ store.BlobStore = (*CloudinaryService)(nil)

// NewCloudinaryService создает новый экземпляр CloudinaryService
func NewCloudinaryService(cfg *config.Config) (*CloudinaryService, error) {
	client, err := cld.NewFromParams(
		cfg.CloudinaryConfig.CloudName,
		cfg.CloudinaryConfig.APIKey,
		cfg.CloudinaryConfig.APISecret,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}

	return &CloudinaryService{
		cfg:          cfg,
		client:       client,
		jwtService:   utils.NewJWTService(cfg.JWTSecret),
		uploadFolder: cfg.CloudinaryConfig.UploadFolder,
		uploadPreset: cfg.CloudinaryConfig.UploadPreset,
	}, nil
}

// Store загружает изображение и возвращает его public_id
func (s *CloudinaryService) Store(ctx context.Context, data []byte, name string) (string, error) {
	if name == "" {
		name = uuid.NewString()
	}

	res, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: name,
		Folder:   s.uploadFolder,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки в Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}

	return res.PublicID, nil
}

// Delete удаляет изображение. Отсутствующее изображение не считается ошибкой
func (s *CloudinaryService) Delete(ctx context.Context, ref string) error {
	res, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref})
	if err != nil {
		return fmt.Errorf("ошибка удаления из Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}

	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("неожиданный ответ Cloudinary: %s", res.Result)
	}
}

// URL возвращает адрес изображения по public_id
func (s *CloudinaryService) URL(ref string) (string, error) {
	img, err := s.client.Image(ref)
	if err != nil {
		return "", err
	}
	return img.String()
}

// GenerateSignature создаёт подпись параметров загрузки
func (s *CloudinaryService) GenerateSignature(params url.Values) (string, error) {
	return api.SignParameters(params, s.cfg.CloudinaryConfig.APISecret)
}

// GenerateUploadParams создаёт параметры для прямой загрузки изображения с клиента
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	// Генерируем ID для объявления, если не передан
	listingID := c.Query("listing_id")
	if listingID == "" {
		listingID = uuid.New().String()
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", s.uploadFolder)

	signature, err := s.GenerateSignature(params)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"timestamp":     timestamp,
		"signature":     signature,
		"api_key":       s.cfg.CloudinaryConfig.APIKey,
		"cloud_name":    s.cfg.CloudinaryConfig.CloudName,
		"folder":        s.uploadFolder,
		"upload_preset": s.uploadPreset,
		"listing_id":    listingID,
	})
}
