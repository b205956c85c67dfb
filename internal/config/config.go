package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Драйверы хранилища
const (
	DriverPgx    = "pgx"
	DriverGorm   = "gorm"
	DriverSQLite = "sqlite"
)

// Config структура конфигурации
type Config struct {
	Port             string
	TelegramBotToken string
	JWTSecret        string
	DatabaseURL      string
	DBDriver         string
	SQLitePath       string
	DatabaseConfig   DatabaseConfig
	CloudinaryConfig CloudinaryConfig
	AppEnv           string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	UploadFolder string
}

// Load читает .env и переменные окружения и проверяет обязательные значения
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "realty_user"),
		Password: getEnv("PGPASSWORD", "realty_pass"),
		Name:     getEnv("PGDATABASE", "realty"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения, если DATABASE_URL не задан явно
	dbURL := getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode))

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		DatabaseURL:      dbURL,
		DBDriver:         getEnv("DB_DRIVER", DriverPgx),
		SQLitePath:       getEnv("SQLITE_PATH", "realty.db"),
		DatabaseConfig:   dbConfig,
		CloudinaryConfig: CloudinaryConfig{
			CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
			UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "realty"),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "listings"),
		},
		AppEnv: getEnv("APP_ENV", "production"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("не задан JWT_SECRET")
	}

	switch cfg.DBDriver {
	case DriverPgx, DriverGorm, DriverSQLite:
	default:
		return nil, fmt.Errorf("неизвестный DB_DRIVER: %s", cfg.DBDriver)
	}

	return cfg, nil
}

// LoadConfig загружает конфигурацию или завершает процесс
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}
	return cfg
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
