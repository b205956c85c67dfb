package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/store"
)

const (
	userColumns    = `id, telegram_id, username, first_name, last_name, avatar_url, role, created_at`
	listingColumns = `id, owner_id, title, description, address, kind, availability, price,
		image_ref, image_url, created_at, updated_at`
	requestColumns = `id, listing_id, requester_id, seller_id, type, status,
		contact_name, contact_email, contact_phone, contact_address, message, created_at, responded_at`
	transactionColumns = `t.id, t.listing_id, t.buyer_renter_id, t.transaction_date, t.type, t.amount,
		t.buyer_name, t.buyer_email, t.buyer_phone, t.buyer_address`

	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// querier - общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store реализует store.Store поверх пула pgx
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore создаёт хранилище поверх пула
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{q: pool}, pool: pool}
}

// Atomic выполняет fn в транзакции: nil фиксирует, ошибка откатывает
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{queries{q: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

type queries struct {
	q querier
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.AvatarURL, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Address, &l.Kind, &l.Availability, &l.Price,
		&l.ImageRef, &l.ImageURL, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var r models.Request
	err := row.Scan(
		&r.ID, &r.ListingID, &r.RequesterID, &r.SellerID, &r.Type, &r.Status,
		&r.Contact.Name, &r.Contact.Email, &r.Contact.Phone, &r.Contact.Address,
		&r.Message, &r.CreatedAt, &r.RespondedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.ListingID, &t.BuyerRenterID, &t.Date, &t.Type, &t.Amount,
		&t.BuyerContact.Name, &t.BuyerContact.Email, &t.BuyerContact.Phone, &t.BuyerContact.Address,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// writeErr переводит ошибки ограничений при вставке в ошибки домена:
// дубль - в duplicate, ссылка на отсутствующую запись - в ErrNotFound
func writeErr(err error, duplicate error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == uniqueViolation && duplicate != nil:
		return duplicate
	case pgErr.Code == foreignKeyViolation:
		return fmt.Errorf("%w: %s", models.ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

// where собирает условия вида "col = $n" для непустых значений
type where struct {
	conditions []string
	args       []interface{}
}

func (w *where) add(column string, value interface{}) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

func (q queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(q.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q queries) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return scanUser(q.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
}

func (q queries) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return scanListing(q.q.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
}

func (q queries) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return scanRequest(q.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
}

func (q queries) ListListings(ctx context.Context, f store.ListingFilter) ([]models.Listing, error) {
	var w where
	if f.OwnerID != uuid.Nil {
		w.add("owner_id", f.OwnerID)
	}
	if f.Availability != "" {
		w.add("availability", f.Availability)
	}

	query := `SELECT ` + listingColumns + ` FROM listings ` + w.String() + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	return q.listListings(ctx, query, w.args...)
}

func (q queries) listListings(ctx context.Context, query string, args ...interface{}) ([]models.Listing, error) {
	rows, err := q.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (q queries) ListRequests(ctx context.Context, f store.RequestFilter) ([]models.Request, error) {
	var w where
	if f.ListingID != uuid.Nil {
		w.add("listing_id", f.ListingID)
	}
	if f.RequesterID != uuid.Nil {
		w.add("requester_id", f.RequesterID)
	}
	if f.SellerID != uuid.Nil {
		w.add("seller_id", f.SellerID)
	}
	if f.Status != "" {
		w.add("status", f.Status)
	}

	rows, err := q.q.Query(ctx, `SELECT `+requestColumns+` FROM requests `+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []models.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (q queries) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	var w where
	from := `transactions t`
	if f.OwnerID != uuid.Nil {
		from += ` JOIN listings l ON l.id = t.listing_id`
		w.add("l.owner_id", f.OwnerID)
	}
	if f.ListingID != uuid.Nil {
		w.add("t.listing_id", f.ListingID)
	}
	if f.BuyerRenterID != uuid.Nil {
		w.add("t.buyer_renter_id", f.BuyerRenterID)
	}
	if f.Type != "" {
		w.add("t.type", f.Type)
	}

	rows, err := q.q.Query(ctx, `SELECT `+transactionColumns+` FROM `+from+` `+w.String()+` ORDER BY t.transaction_date DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (q queries) GetFavorite(ctx context.Context, userID, listingID uuid.UUID) (*models.Favorite, error) {
	var f models.Favorite
	err := q.q.QueryRow(ctx, `
		SELECT id, user_id, listing_id, created_at FROM favorites
		WHERE user_id = $1 AND listing_id = $2
	`, userID, listingID).Scan(&f.ID, &f.UserID, &f.ListingID, &f.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (q queries) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	rows, err := q.q.Query(ctx, `
		SELECT f.id, f.user_id, f.listing_id, f.created_at,
		       l.id, l.owner_id, l.title, l.description, l.address, l.kind, l.availability, l.price,
		       l.image_ref, l.image_url, l.created_at, l.updated_at
		FROM favorites f
		JOIN listings l ON f.listing_id = l.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		var l models.Listing
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.ListingID, &f.CreatedAt,
			&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Address, &l.Kind, &l.Availability, &l.Price,
			&l.ImageRef, &l.ImageURL, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		f.Listing = &l
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// txStore - операции внутри pgx.Tx
type txStore struct {
	queries
}

func (t *txStore) LockListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return scanListing(t.q.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id))
}

func (t *txStore) LockListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	// порядок по id, чтобы параллельные каскады брали блокировки одинаково
	return t.listListings(ctx, `SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY id FOR UPDATE`, ownerID)
}

func (t *txStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO users (id, telegram_id, username, first_name, last_name, avatar_url, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.TelegramID, u.Username, u.FirstName, u.LastName, u.AvatarURL, u.Role, u.CreatedAt)
	return writeErr(err, models.ErrConflict)
}

func (t *txStore) CreateListing(ctx context.Context, l *models.Listing) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO listings (id, owner_id, title, description, address, kind, availability, price,
		                      image_ref, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, l.ID, l.OwnerID, l.Title, l.Description, l.Address, l.Kind, l.Availability, l.Price,
		l.ImageRef, l.ImageURL, l.CreatedAt, l.UpdatedAt)
	return writeErr(err, nil)
}

func (t *txStore) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO requests (id, listing_id, requester_id, seller_id, type, status,
		                      contact_name, contact_email, contact_phone, contact_address, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.ListingID, r.RequesterID, r.SellerID, r.Type, r.Status,
		r.Contact.Name, r.Contact.Email, r.Contact.Phone, r.Contact.Address, r.Message, r.CreatedAt)
	return writeErr(err, models.ErrDuplicatePending)
}

func (t *txStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO transactions (id, listing_id, buyer_renter_id, transaction_date, type, amount,
		                          buyer_name, buyer_email, buyer_phone, buyer_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, txn.ID, txn.ListingID, txn.BuyerRenterID, txn.Date, txn.Type, txn.Amount,
		txn.BuyerContact.Name, txn.BuyerContact.Email, txn.BuyerContact.Phone, txn.BuyerContact.Address)
	return writeErr(err, nil)
}

func (t *txStore) CreateFavorite(ctx context.Context, f *models.Favorite) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO favorites (id, user_id, listing_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, f.ID, f.UserID, f.ListingID, f.CreatedAt)
	return writeErr(err, models.ErrConflict)
}

func (t *txStore) DeleteFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	tag, err := t.q.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`, userID, listingID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txStore) SetAvailability(ctx context.Context, id uuid.UUID, from, to models.Availability) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE listings SET availability = $3, updated_at = NOW()
		WHERE id = $1 AND availability = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txStore) SetListingImage(ctx context.Context, id uuid.UUID, ref, url string) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE listings SET image_ref = $2, image_url = $3, updated_at = NOW()
		WHERE id = $1
	`, id, ref, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (t *txStore) ResolveRequest(ctx context.Context, id uuid.UUID, status models.RequestStatus, at time.Time) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE requests SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'pending'
	`, id, status, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txStore) DeleteWhere(ctx context.Context, table store.Table, column string, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`,
		pq.QuoteIdentifier(string(table)), pq.QuoteIdentifier(column))

	tag, err := t.q.Exec(ctx, query, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
