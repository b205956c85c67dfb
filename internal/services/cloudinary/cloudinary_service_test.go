package cloudinary

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/realty-api/internal/config"
)

func newTestService(t *testing.T) *CloudinaryService {
	s, err := NewCloudinaryService(&config.Config{
		JWTSecret: "secret",
		CloudinaryConfig: config.CloudinaryConfig{
			CloudName:    "demo",
			APIKey:       "key",
			APISecret:    "cloud-secret",
			UploadPreset: "realty",
			UploadFolder: "listings",
		},
	})
	require.NoError(t, err)
	return s
}

func TestURL(t *testing.T) {
	s := newTestService(t)

	u, err := s.URL("listings/house")
	require.NoError(t, err)
	assert.Contains(t, u, "demo")
	assert.Contains(t, u, "listings/house")
}

func TestGenerateSignatureIsStable(t *testing.T) {
	s := newTestService(t)

	params := url.Values{}
	params.Set("timestamp", "1700000000")
	params.Set("folder", "listings")

	first, err := s.GenerateSignature(params)
	require.NoError(t, err)
	second, err := s.GenerateSignature(params)
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)

	params.Set("timestamp", "1700000001")
	third, err := s.GenerateSignature(params)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestGenerateUploadParams(t *testing.T) {
	s := newTestService(t)
	app := fiber.New()
	s.SetupRoutes(app)

	token, err := s.jwtService.GenerateToken(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/api/upload/params?listing_id=abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "abc", body["listing_id"])
	assert.Equal(t, "demo", body["cloud_name"])
	assert.Equal(t, "listings", body["folder"])
	assert.NotEmpty(t, body["signature"])
}
