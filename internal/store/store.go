// Package store описывает хранилище сущностей: чтение и атомарные единицы записи.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/models"
)

// Table - имя таблицы, участвующей в плане удаления
type Table string

const (
	TableUsers        Table = "users"
	TableListings     Table = "listings"
	TableRequests     Table = "requests"
	TableTransactions Table = "transactions"
	TableFavorites    Table = "favorites"
)

// ListingFilter отбирает объекты; нулевые поля не участвуют в отборе
type ListingFilter struct {
	OwnerID      uuid.UUID
	Availability models.Availability
	Limit        int
	Offset       int
}

// RequestFilter отбирает заявки
type RequestFilter struct {
	ListingID   uuid.UUID
	RequesterID uuid.UUID
	SellerID    uuid.UUID
	Status      models.RequestStatus
}

// TransactionFilter отбирает сделки. OwnerID фильтрует по владельцу объекта
type TransactionFilter struct {
	ListingID     uuid.UUID
	BuyerRenterID uuid.UUID
	OwnerID       uuid.UUID
	Type          models.TransactionType
}

// Reader - операции чтения. Отсутствие записи возвращается как models.ErrNotFound
type Reader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListListings(ctx context.Context, f ListingFilter) ([]models.Listing, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]models.Request, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
	GetFavorite(ctx context.Context, userID, listingID uuid.UUID) (*models.Favorite, error)
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error)
}

// Tx - операции внутри атомарной единицы
type Tx interface {
	Reader

	// LockListing читает объект с исключительной блокировкой строки до конца единицы
	LockListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	LockListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error)

	CreateUser(ctx context.Context, u *models.User) error
	CreateListing(ctx context.Context, l *models.Listing) error
	CreateRequest(ctx context.Context, r *models.Request) error
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	CreateFavorite(ctx context.Context, f *models.Favorite) error
	DeleteFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error)

	// SetAvailability меняет доступность только если текущее значение равно from
	SetAvailability(ctx context.Context, id uuid.UUID, from, to models.Availability) (bool, error)
	SetListingImage(ctx context.Context, id uuid.UUID, ref, url string) error

	// ResolveRequest переводит заявку из pending в status; false если она уже не pending
	ResolveRequest(ctx context.Context, id uuid.UUID, status models.RequestStatus, at time.Time) (bool, error)

	// DeleteWhere удаляет строки table, у которых column входит в ids
	DeleteWhere(ctx context.Context, table Table, column string, ids []uuid.UUID) (int64, error)
}

// Store - хранилище с атомарной фиксацией. fn выполняется в одной транзакции:
// nil фиксирует, ошибка откатывает все записи.
type Store interface {
	Reader
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// BlobStore - внешнее хранилище изображений
type BlobStore interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
	// Delete идемпотентен: отсутствие файла не является ошибкой
	Delete(ctx context.Context, ref string) error
	URL(ref string) (string, error)
}
