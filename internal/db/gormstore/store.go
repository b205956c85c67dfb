// Package gormstore - реализация хранилища на gorm (postgres или sqlite)
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/store"
)

// Store реализует store.Store поверх gorm
type Store struct {
	reader
}

var _ store.Store = (*Store)(nil)

// Open открывает соединение и создаёт недостающие таблицы
func Open(dialector gorm.Dialector) (*Store, error) {
	s, err := open(dialector)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func open(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии базы данных: %w", err)
	}

	return &Store{reader{db: db}}, nil
}

// OpenSQLite открывает sqlite с проверкой внешних ключей. Одно соединение:
// ":memory:" остаётся одной базой, а атомарные единицы выполняются последовательно.
func OpenSQLite(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=1"
	}

	s, err := open(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenPostgres открывает postgres через gorm
func OpenPostgres(dsn string) (*Store, error) {
	return Open(postgres.Open(dsn))
}

// pendingIndex - не больше одной ожидающей заявки от пользователя на объект.
// Частичный индекс gorm по тегам не строит.
const pendingIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_pending
	ON requests (listing_id, requester_id) WHERE status = 'pending'`

// Migrate создаёт таблицы по моделям вместе с внешними ключами (ON DELETE RESTRICT)
// и частичным индексом ожидающих заявок
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Request{},
		&models.Transaction{},
		&models.Favorite{},
	)
	if err != nil {
		return fmt.Errorf("ошибка миграции схемы: %w", err)
	}
	if err := s.db.Exec(pendingIndex).Error; err != nil {
		return fmt.Errorf("ошибка создания индекса заявок: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomic выполняет fn в одной транзакции gorm
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{reader{db: tx}})
	})
}

type reader struct {
	db *gorm.DB
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

// writeErr переводит нарушения ограничений при вставке: дубль в duplicate,
// ссылку на отсутствующую запись в ErrNotFound
func writeErr(err error, duplicate error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey) && duplicate != nil:
		return duplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	return err
}

func (r reader) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r reader) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "telegram_id = ?", telegramID).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r reader) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (r reader) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r reader) ListListings(ctx context.Context, f store.ListingFilter) ([]models.Listing, error) {
	q := r.db.WithContext(ctx).Model(&models.Listing{})
	if f.OwnerID != uuid.Nil {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Availability != "" {
		q = q.Where("availability = ?", f.Availability)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	listings := []models.Listing{}
	if err := q.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r reader) ListRequests(ctx context.Context, f store.RequestFilter) ([]models.Request, error) {
	q := r.db.WithContext(ctx).Model(&models.Request{})
	if f.ListingID != uuid.Nil {
		q = q.Where("listing_id = ?", f.ListingID)
	}
	if f.RequesterID != uuid.Nil {
		q = q.Where("requester_id = ?", f.RequesterID)
	}
	if f.SellerID != uuid.Nil {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	requests := []models.Request{}
	if err := q.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r reader) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{}).Select("transactions.*")
	if f.OwnerID != uuid.Nil {
		q = q.Joins("JOIN listings ON listings.id = transactions.listing_id").
			Where("listings.owner_id = ?", f.OwnerID)
	}
	if f.ListingID != uuid.Nil {
		q = q.Where("transactions.listing_id = ?", f.ListingID)
	}
	if f.BuyerRenterID != uuid.Nil {
		q = q.Where("transactions.buyer_renter_id = ?", f.BuyerRenterID)
	}
	if f.Type != "" {
		q = q.Where("transactions.type = ?", f.Type)
	}

	txns := []models.Transaction{}
	if err := q.Order("transactions.transaction_date DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r reader) GetFavorite(ctx context.Context, userID, listingID uuid.UUID) (*models.Favorite, error) {
	var f models.Favorite
	err := r.db.WithContext(ctx).
		First(&f, "user_id = ? AND listing_id = ?", userID, listingID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r reader) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	favorites := []models.Favorite{}
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// txStore - операции внутри транзакции gorm
type txStore struct {
	reader
}

func (t *txStore) LockListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (t *txStore) LockListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	listings := []models.Listing{}
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (t *txStore) CreateUser(ctx context.Context, u *models.User) error {
	return writeErr(t.db.WithContext(ctx).Create(u).Error, models.ErrConflict)
}

func (t *txStore) CreateListing(ctx context.Context, l *models.Listing) error {
	return writeErr(t.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error, nil)
}

func (t *txStore) CreateRequest(ctx context.Context, r *models.Request) error {
	err := t.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error
	return writeErr(err, models.ErrDuplicatePending)
}

func (t *txStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return writeErr(t.db.WithContext(ctx).Omit(clause.Associations).Create(txn).Error, nil)
}

func (t *txStore) CreateFavorite(ctx context.Context, f *models.Favorite) error {
	err := t.db.WithContext(ctx).Omit(clause.Associations).Create(f).Error
	return writeErr(err, models.ErrConflict)
}

func (t *txStore) DeleteFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	res := t.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.Favorite{})
	return res.RowsAffected > 0, res.Error
}

func (t *txStore) SetAvailability(ctx context.Context, id uuid.UUID, from, to models.Availability) (bool, error) {
	res := t.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND availability = ?", id, from).
		Updates(map[string]interface{}{
			"availability": to,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (t *txStore) SetListingImage(ctx context.Context, id uuid.UUID, ref, url string) error {
	res := t.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_ref":  ref,
			"image_url":  url,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (t *txStore) ResolveRequest(ctx context.Context, id uuid.UUID, status models.RequestStatus, at time.Time) (bool, error) {
	res := t.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (t *txStore) DeleteWhere(ctx context.Context, table store.Table, column string, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN ?",
		pq.QuoteIdentifier(string(table)), pq.QuoteIdentifier(column))

	res := t.db.WithContext(ctx).Exec(query, ids)
	return res.RowsAffected, res.Error
}
