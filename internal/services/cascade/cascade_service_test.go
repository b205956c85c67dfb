package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/db/gormstore"
	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/store"
)

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func (f *fakeBlobs) Store(ctx context.Context, data []byte, name string) (string, error) {
	return "realty/" + name, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[ref] {
		return errors.New("cloud unavailable")
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeBlobs) URL(ref string) (string, error) {
	return "https://img.example.com/" + ref, nil
}

// failingStore ломает удаление из одной таблицы внутри атомарной единицы
type failingStore struct {
	store.Store
	failOn store.Table
}

func (f *failingStore) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.Atomic(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	store.Tx
	failOn store.Table
}

func (f *failingTx) DeleteWhere(ctx context.Context, table store.Table, column string, ids []uuid.UUID) (int64, error) {
	if table == f.failOn {
		return 0, errors.New("disk full")
	}
	return f.Tx.DeleteWhere(ctx, table, column, ids)
}

type fixture struct {
	store *gormstore.Store
	blobs *fakeBlobs
	svc   *CascadeService
}

func setupFixture(t *testing.T) *fixture {
	s, err := gormstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	blobs := &fakeBlobs{failOn: map[string]bool{}}
	return &fixture{
		store: s,
		blobs: blobs,
		svc:   NewCascadeService(&config.Config{JWTSecret: "secret"}, s, blobs),
	}
}

func (f *fixture) atomic(t *testing.T, fn func(ctx context.Context, tx store.Tx) error) {
	ctx := context.Background()
	require.NoError(t, f.store.Atomic(ctx, func(tx store.Tx) error { return fn(ctx, tx) }))
}

func (f *fixture) user(t *testing.T, role string) *models.User {
	u := &models.User{ID: uuid.New(), Username: "u" + uuid.NewString()[:8], Role: role}
	f.atomic(t, func(ctx context.Context, tx store.Tx) error { return tx.CreateUser(ctx, u) })
	return u
}

func (f *fixture) listing(t *testing.T, owner uuid.UUID, imageRef string) *models.Listing {
	l := &models.Listing{
		ID:           uuid.New(),
		OwnerID:      owner,
		Title:        "Дом",
		Kind:         models.KindForSale,
		Availability: models.Available,
		Price:        100000,
		ImageRef:     imageRef,
	}
	f.atomic(t, func(ctx context.Context, tx store.Tx) error { return tx.CreateListing(ctx, l) })
	return l
}

func (f *fixture) request(t *testing.T, l *models.Listing, requester uuid.UUID) *models.Request {
	r := &models.Request{
		ID:          uuid.New(),
		ListingID:   l.ID,
		RequesterID: requester,
		SellerID:    l.OwnerID,
		Type:        models.RequestBuy,
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	f.atomic(t, func(ctx context.Context, tx store.Tx) error { return tx.CreateRequest(ctx, r) })
	return r
}

func (f *fixture) transaction(t *testing.T, l *models.Listing, buyer uuid.UUID) {
	txn := models.Transaction{
		ID:            uuid.New(),
		ListingID:     l.ID,
		BuyerRenterID: buyer,
		Date:          time.Now().UTC(),
		Type:          models.TransactionSold,
		Amount:        l.Price,
	}
	f.atomic(t, func(ctx context.Context, tx store.Tx) error { return tx.CreateTransaction(ctx, &txn) })
}

func (f *fixture) favorite(t *testing.T, user, listing uuid.UUID) {
	fav := &models.Favorite{ID: uuid.New(), UserID: user, ListingID: listing, CreatedAt: time.Now().UTC()}
	f.atomic(t, func(ctx context.Context, tx store.Tx) error { return tx.CreateFavorite(ctx, fav) })
}

// references считает строки, ссылающиеся на пользователя или объект
func (f *fixture) references(t *testing.T, userID uuid.UUID, listingIDs ...uuid.UUID) int {
	ctx := context.Background()
	total := 0

	for _, filter := range []store.RequestFilter{{RequesterID: userID}, {SellerID: userID}} {
		reqs, err := f.store.ListRequests(ctx, filter)
		require.NoError(t, err)
		total += len(reqs)
	}
	for _, filter := range []store.TransactionFilter{{BuyerRenterID: userID}, {OwnerID: userID}} {
		txns, err := f.store.ListTransactions(ctx, filter)
		require.NoError(t, err)
		total += len(txns)
	}
	favs, err := f.store.ListFavorites(ctx, userID)
	require.NoError(t, err)
	total += len(favs)

	owned, err := f.store.ListListings(ctx, store.ListingFilter{OwnerID: userID})
	require.NoError(t, err)
	total += len(owned)

	for _, id := range listingIDs {
		reqs, err := f.store.ListRequests(ctx, store.RequestFilter{ListingID: id})
		require.NoError(t, err)
		total += len(reqs)

		txns, err := f.store.ListTransactions(ctx, store.TransactionFilter{ListingID: id})
		require.NoError(t, err)
		total += len(txns)
	}
	return total
}

func TestDeleteUser_OwnerWithPendingRequestsAndHistory(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	owner := f.user(t, models.RoleUser)
	b := f.user(t, models.RoleUser)
	c := f.user(t, models.RoleUser)
	other := f.user(t, models.RoleUser)

	l := f.listing(t, owner.ID, "realty/l1")
	f.request(t, l, b.ID)
	f.request(t, l, c.ID)
	f.transaction(t, l, other.ID)
	f.favorite(t, b.ID, l.ID)

	// у владельца есть и чужие связи
	foreign := f.listing(t, other.ID, "")
	f.request(t, foreign, owner.ID)
	f.favorite(t, owner.ID, foreign.ID)
	f.transaction(t, foreign, owner.ID)

	// объект передан другому владельцу, в заявке остался снимок прежнего продавца
	moved := f.listing(t, other.ID, "")
	snapshot := &models.Request{
		ID:          uuid.New(),
		ListingID:   moved.ID,
		RequesterID: c.ID,
		SellerID:    owner.ID,
		Type:        models.RequestBuy,
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	f.atomic(t, func(ctx context.Context, tx store.Tx) error { return tx.CreateRequest(ctx, snapshot) })

	report, err := f.svc.DeleteUser(ctx, owner, owner.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Deleted[store.TableUsers])
	assert.Equal(t, int64(1), report.Deleted[store.TableListings])
	assert.Equal(t, int64(4), report.Deleted[store.TableRequests])
	assert.Equal(t, int64(2), report.Deleted[store.TableTransactions])
	assert.Equal(t, int64(2), report.Deleted[store.TableFavorites])
	assert.Equal(t, 1, report.BlobsReleased)
	assert.Equal(t, []string{"realty/l1"}, f.blobs.deleted)

	assert.Zero(t, f.references(t, owner.ID, l.ID))

	_, err = f.store.GetListing(ctx, l.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.store.GetUser(ctx, owner.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.store.GetRequest(ctx, snapshot.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// чужие объекты и другие пользователи не тронуты
	_, err = f.store.GetListing(ctx, foreign.ID)
	assert.NoError(t, err)
	_, err = f.store.GetListing(ctx, moved.ID)
	assert.NoError(t, err)
	_, err = f.store.GetUser(ctx, other.ID)
	assert.NoError(t, err)
}

func TestDeleteUser_ManyListings(t *testing.T) {
	f := setupFixture(t)
	owner := f.user(t, models.RoleUser)
	buyer := f.user(t, models.RoleUser)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		l := f.listing(t, owner.ID, "realty/"+uuid.NewString())
		f.request(t, l, buyer.ID)
		f.favorite(t, buyer.ID, l.ID)
		ids = append(ids, l.ID)
	}

	report, err := f.svc.DeleteUser(context.Background(), SystemActor, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Deleted[store.TableListings])
	assert.Equal(t, 5, report.BlobsReleased)
	assert.Zero(t, f.references(t, owner.ID, ids...))

	favs, err := f.store.ListFavorites(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestDeleteUser_Authorization(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	target := f.user(t, models.RoleUser)
	stranger := f.user(t, models.RoleUser)
	admin := f.user(t, models.RoleAdmin)

	_, err := f.svc.DeleteUser(ctx, stranger, target.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.DeleteUser(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.DeleteUser(ctx, admin, target.ID)
	assert.NoError(t, err)
}

func TestDeleteListing_RemovesDependents(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.user(t, models.RoleUser)
	buyer := f.user(t, models.RoleUser)

	l := f.listing(t, owner.ID, "realty/house")
	kept := f.listing(t, owner.ID, "")
	f.request(t, l, buyer.ID)
	f.request(t, kept, buyer.ID)
	f.transaction(t, l, buyer.ID)
	f.favorite(t, buyer.ID, l.ID)
	f.favorite(t, buyer.ID, kept.ID)

	_, err := f.svc.DeleteListing(ctx, buyer, l.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	report, err := f.svc.DeleteListing(ctx, owner, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Deleted[store.TableListings])
	assert.Equal(t, []string{"realty/house"}, f.blobs.deleted)

	reqs, err := f.store.ListRequests(ctx, store.RequestFilter{ListingID: l.ID})
	require.NoError(t, err)
	assert.Empty(t, reqs)
	txns, err := f.store.ListTransactions(ctx, store.TransactionFilter{ListingID: l.ID})
	require.NoError(t, err)
	assert.Empty(t, txns)

	favs, err := f.store.ListFavorites(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, kept.ID, favs[0].ListingID)

	_, err = f.svc.DeleteListing(ctx, owner, l.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteListing_BlobFailureIsNotFatal(t *testing.T) {
	f := setupFixture(t)
	owner := f.user(t, models.RoleUser)
	l := f.listing(t, owner.ID, "realty/broken")
	f.blobs.failOn["realty/broken"] = true

	report, err := f.svc.DeleteListing(context.Background(), owner, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.BlobsFailed)
	assert.Zero(t, report.BlobsReleased)

	_, err = f.store.GetListing(context.Background(), l.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteUser_FailureRollsBackEverything(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	owner := f.user(t, models.RoleUser)
	buyer := f.user(t, models.RoleUser)
	l := f.listing(t, owner.ID, "realty/keep")
	f.request(t, l, buyer.ID)
	f.favorite(t, buyer.ID, l.ID)

	svc := NewCascadeService(&config.Config{JWTSecret: "secret"},
		&failingStore{Store: f.store, failOn: store.TableListings}, f.blobs)

	_, err := svc.DeleteUser(ctx, owner, owner.ID)
	require.ErrorIs(t, err, models.ErrCascadeFailed)
	assert.Equal(t, models.ErrCascadeFailed.Error(), err.Error())
	assert.NotContains(t, err.Error(), "disk full")

	// ничего не удалено, изображение не тронуто
	_, err = f.store.GetListing(ctx, l.ID)
	assert.NoError(t, err)
	reqs, err := f.store.ListRequests(ctx, store.RequestFilter{ListingID: l.ID})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	favs, err := f.store.ListFavorites(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 1)
	assert.Empty(t, f.blobs.deleted)
}

func TestUserPlanDeletesLeavesBeforeParents(t *testing.T) {
	userID := uuid.New()
	owned := []uuid.UUID{uuid.New(), uuid.New()}
	plan := userPlan(userID, owned)

	position := map[store.Table]int{}
	for i, step := range plan {
		if _, seen := position[step.Table]; !seen {
			position[step.Table] = i
		}
	}
	last := func(table store.Table) int {
		idx := -1
		for i, step := range plan {
			if step.Table == table {
				idx = i
			}
		}
		return idx
	}

	for _, child := range []store.Table{store.TableFavorites, store.TableRequests, store.TableTransactions} {
		assert.Less(t, last(child), position[store.TableListings], "%s после listings", child)
	}
	assert.Less(t, last(store.TableListings), position[store.TableUsers])
	assert.Equal(t, store.TableUsers, plan[len(plan)-1].Table)

	columns := map[string]bool{}
	for _, step := range plan {
		columns[string(step.Table)+"."+step.Column] = true
	}
	for _, want := range []string{
		"favorites.user_id", "favorites.listing_id",
		"requests.requester_id", "requests.seller_id", "requests.listing_id",
		"transactions.buyer_renter_id", "transactions.listing_id",
	} {
		assert.True(t, columns[want], want)
	}
}
