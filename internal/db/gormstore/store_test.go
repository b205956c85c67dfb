package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store) uuid.UUID {
	u := &models.User{ID: uuid.New(), Username: "user", Role: models.RoleUser, CreatedAt: time.Now().UTC()}
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.CreateUser(context.Background(), u)
	})
	require.NoError(t, err)
	return u.ID
}

func seedListing(t *testing.T, s *Store, owner uuid.UUID, kind models.ListingKind) *models.Listing {
	l := &models.Listing{
		ID:           uuid.New(),
		OwnerID:      owner,
		Title:        "Flat",
		Kind:         kind,
		Availability: models.Available,
		Price:        100000,
	}
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.CreateListing(context.Background(), l)
	})
	require.NoError(t, err)
	return l
}

func TestStore_GetMissingIsNotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.GetListing(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.GetRequest(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_SetAvailabilityIsConditional(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	l := seedListing(t, s, seedUser(t, s), models.KindForSale)

	var first, second bool
	err := s.Atomic(ctx, func(tx store.Tx) error {
		var err error
		first, err = tx.SetAvailability(ctx, l.ID, models.Available, models.Sold)
		if err != nil {
			return err
		}
		second, err = tx.SetAvailability(ctx, l.ID, models.Available, models.Sold)
		return err
	})
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	got, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Sold, got.Availability)
}

func TestStore_ResolveRequestOnlyFromPending(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner, buyer := seedUser(t, s), seedUser(t, s)
	l := seedListing(t, s, owner, models.KindForSale)

	req := &models.Request{
		ID:          uuid.New(),
		ListingID:   l.ID,
		RequesterID: buyer,
		SellerID:    owner,
		Type:        models.RequestBuy,
		Status:      models.StatusPending,
		Contact:     models.ContactInfo{Name: "Bob"},
		CreatedAt:   time.Now().UTC(),
	}
	now := time.Now().UTC()

	var ok1, ok2 bool
	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreateRequest(ctx, req); err != nil {
			return err
		}
		var err error
		if ok1, err = tx.ResolveRequest(ctx, req.ID, models.StatusRejected, now); err != nil {
			return err
		}
		ok2, err = tx.ResolveRequest(ctx, req.ID, models.StatusAccepted, now)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ok1)
	assert.False(t, ok2)

	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.Equal(t, "Bob", got.Contact.Name)
}

func TestStore_AtomicRollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	l := &models.Listing{ID: uuid.New(), OwnerID: seedUser(t, s), Title: "x", Kind: models.KindForRent, Availability: models.Available}
	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreateListing(ctx, l); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetListing(ctx, l.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_DeleteWhere(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)
	a := seedListing(t, s, seedUser(t, s), models.KindForSale)
	b := seedListing(t, s, seedUser(t, s), models.KindForSale)

	err := s.Atomic(ctx, func(tx store.Tx) error {
		for _, l := range []*models.Listing{a, b} {
			f := &models.Favorite{ID: uuid.New(), UserID: user, ListingID: l.ID, CreatedAt: time.Now().UTC()}
			if err := tx.CreateFavorite(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var n int64
	err = s.Atomic(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteWhere(ctx, store.TableFavorites, "listing_id", []uuid.UUID{a.ID})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	favs, err := s.ListFavorites(ctx, user)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, b.ID, favs[0].ListingID)
	require.NotNil(t, favs[0].Listing)
	assert.Equal(t, b.ID, favs[0].Listing.ID)
}

func TestStore_ListTransactionsByOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner, other, buyer := seedUser(t, s), seedUser(t, s), seedUser(t, s)
	mine := seedListing(t, s, owner, models.KindForSale)
	theirs := seedListing(t, s, other, models.KindForRent)

	err := s.Atomic(ctx, func(tx store.Tx) error {
		for _, l := range []*models.Listing{mine, theirs} {
			txn := models.NewTransaction(*l, models.Request{RequesterID: buyer, Type: models.RequestBuy}, time.Now().UTC())
			if err := tx.CreateTransaction(ctx, &txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	got, err := s.ListTransactions(ctx, store.TransactionFilter{OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ListingID)

	got, err = s.ListTransactions(ctx, store.TransactionFilter{BuyerRenterID: buyer, Type: models.TransactionSold})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func pendingRequest(l *models.Listing, requester uuid.UUID) *models.Request {
	return &models.Request{
		ID:          uuid.New(),
		ListingID:   l.ID,
		RequesterID: requester,
		SellerID:    l.OwnerID,
		Type:        models.RequestBuy,
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestStore_ForeignKeysRejectMissingParents(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s)
	l := seedListing(t, s, owner, models.KindForSale)
	ghost := uuid.New()

	create := func(fn func(tx store.Tx) error) error {
		return s.Atomic(ctx, fn)
	}

	err := create(func(tx store.Tx) error {
		return tx.CreateListing(ctx, &models.Listing{ID: uuid.New(), OwnerID: ghost, Title: "x", Kind: models.KindForSale, Availability: models.Available})
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = create(func(tx store.Tx) error { return tx.CreateRequest(ctx, pendingRequest(l, ghost)) })
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = create(func(tx store.Tx) error {
		return tx.CreateFavorite(ctx, &models.Favorite{ID: uuid.New(), UserID: owner, ListingID: uuid.New(), CreatedAt: time.Now().UTC()})
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = create(func(tx store.Tx) error {
		txn := models.NewTransaction(*l, models.Request{RequesterID: ghost, Type: models.RequestBuy}, time.Now().UTC())
		return tx.CreateTransaction(ctx, &txn)
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := s.ListRequests(ctx, store.RequestFilter{RequesterID: ghost})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_DeleteParentWithChildrenIsRestricted(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner, buyer := seedUser(t, s), seedUser(t, s)
	l := seedListing(t, s, owner, models.KindForSale)
	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateRequest(ctx, pendingRequest(l, buyer))
	}))

	err := s.Atomic(ctx, func(tx store.Tx) error {
		_, err := tx.DeleteWhere(ctx, store.TableUsers, "id", []uuid.UUID{buyer})
		return err
	})
	require.Error(t, err)

	_, err = s.GetUser(ctx, buyer)
	assert.NoError(t, err)
}

func TestStore_OnePendingRequestPerRequester(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner, buyer := seedUser(t, s), seedUser(t, s)
	l := seedListing(t, s, owner, models.KindForSale)

	first := pendingRequest(l, buyer)
	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error { return tx.CreateRequest(ctx, first) }))

	err := s.Atomic(ctx, func(tx store.Tx) error { return tx.CreateRequest(ctx, pendingRequest(l, buyer)) })
	assert.ErrorIs(t, err, models.ErrDuplicatePending)

	// после ответа на первую заявку можно подать новую
	err = s.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.ResolveRequest(ctx, first.ID, models.StatusRejected, time.Now().UTC()); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, pendingRequest(l, buyer))
	})
	require.NoError(t, err)

	got, err := s.ListRequests(ctx, store.RequestFilter{ListingID: l.ID, RequesterID: buyer})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_GetFavorite(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)
	l := seedListing(t, s, seedUser(t, s), models.KindForRent)

	_, err := s.GetFavorite(ctx, user, l.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	f := &models.Favorite{ID: uuid.New(), UserID: user, ListingID: l.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Atomic(ctx, func(tx store.Tx) error { return tx.CreateFavorite(ctx, f) }))

	got, err := s.GetFavorite(ctx, user, l.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	err = s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateFavorite(ctx, &models.Favorite{ID: uuid.New(), UserID: user, ListingID: l.ID, CreatedAt: time.Now().UTC()})
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}
