package request

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/policy"
	"github.com/rajivgeraev/realty-api/internal/store"
	"github.com/rajivgeraev/realty-api/internal/utils"
)

// RequestService ведёт заявки на покупку и аренду.
//
// Все записи, меняющие доступность объекта или статусы его заявок, идут через
// одну точку сериализации на объект: блокировку ключа в процессе и блокировку
// строки объекта внутри атомарной единицы хранилища. Условное обновление
// доступности (available -> sold/rented) обнаруживает гонку даже между процессами.
type RequestService struct {
	store      store.Store
	jwtService *utils.JWTService
	locks      *utils.KeyedMutex
	now        func() time.Time
}

// NewRequestService создает новый экземпляр RequestService
func NewRequestService(cfg *config.Config, st store.Store) *RequestService {
	return &RequestService{
		store:      st,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		locks:      utils.NewKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput - данные новой заявки
type SubmitInput struct {
	ListingID   uuid.UUID
	RequesterID uuid.UUID
	Type        models.RequestType
	Contact     models.ContactInfo
	Message     string
}

// Submit создаёт ожидающую заявку. Проверки идут по порядку, первая неудача
// возвращается: заявитель существует, доступность, тип, собственный объект,
// дубль ожидающей заявки.
func (s *RequestService) Submit(ctx context.Context, in SubmitInput) (*models.Request, error) {
	if in.RequesterID == uuid.Nil {
		return nil, models.ErrUnauthorized
	}

	unlock := s.locks.Lock(in.ListingID.String())
	defer unlock()

	var created *models.Request
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, in.RequesterID); err != nil {
			return err
		}

		listing, err := tx.LockListing(ctx, in.ListingID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: объект %s не найден", models.ErrNotAvailable, in.ListingID)
		}
		if err != nil {
			return err
		}

		if listing.Availability != models.Available {
			return models.ErrNotAvailable
		}
		if !listing.Kind.Accepts(in.Type) {
			return models.ErrTypeMismatch
		}
		if policy.IsOwner(listing, in.RequesterID) {
			return models.ErrSelfDealing
		}

		pending, err := tx.ListRequests(ctx, store.RequestFilter{
			ListingID:   listing.ID,
			RequesterID: in.RequesterID,
			Status:      models.StatusPending,
		})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return models.ErrDuplicatePending
		}

		req := &models.Request{
			ID:          uuid.New(),
			ListingID:   listing.ID,
			RequesterID: in.RequesterID,
			SellerID:    listing.OwnerID,
			Type:        in.Type,
			Status:      models.StatusPending,
			Contact:     in.Contact,
			Message:     in.Message,
			CreatedAt:   s.now(),
		}
		if err := tx.CreateRequest(ctx, req); err != nil {
			return err
		}

		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Accept принимает заявку: объект переходит в sold/rented, создаётся сделка,
// остальные ожидающие заявки на объект отклоняются. Всё в одной атомарной единице.
func (s *RequestService) Accept(ctx context.Context, requestID, actorID uuid.UUID) (*models.Transaction, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !policy.IsSeller(req, actorID) {
		return nil, models.ErrForbidden
	}
	if !req.IsPending() {
		return nil, models.ErrAlreadyResolved
	}

	listing, err := s.store.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Availability != models.Available {
		return nil, models.ErrNotAvailable
	}

	unlock := s.locks.Lock(req.ListingID.String())
	defer unlock()

	var (
		txn      models.Transaction
		rejected int
	)
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		locked, err := tx.LockListing(ctx, req.ListingID)
		if err != nil {
			return err
		}
		if locked.Availability != models.Available {
			return models.ErrConflict
		}

		current, err := tx.GetRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return models.ErrAlreadyResolved
		}

		next, err := locked.Transition(current.Type.Outcome())
		if err != nil {
			return err
		}
		ok, err := tx.SetAvailability(ctx, locked.ID, models.Available, next.Availability)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrConflict
		}

		now := s.now()
		ok, err = tx.ResolveRequest(ctx, current.ID, models.StatusAccepted, now)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrConflict
		}

		txn = models.NewTransaction(*locked, *current, now)
		if err := tx.CreateTransaction(ctx, &txn); err != nil {
			return err
		}

		siblings, err := tx.ListRequests(ctx, store.RequestFilter{
			ListingID: locked.ID,
			Status:    models.StatusPending,
		})
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.ID == current.ID {
				continue
			}
			if _, err := tx.ResolveRequest(ctx, sibling.ID, models.StatusRejected, now); err != nil {
				return err
			}
			rejected++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Заявка %s принята, объект %s -> %s, отклонено остальных: %d",
		req.ID, req.ListingID, txn.Type, rejected)
	return &txn, nil
}

// Reject отклоняет ожидающую заявку. На объект не влияет
func (s *RequestService) Reject(ctx context.Context, requestID, actorID uuid.UUID) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !policy.IsSeller(req, actorID) {
		return nil, models.ErrForbidden
	}
	if !req.IsPending() {
		return nil, models.ErrAlreadyResolved
	}

	unlock := s.locks.Lock(req.ListingID.String())
	defer unlock()

	var updated *models.Request
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		ok, err := tx.ResolveRequest(ctx, req.ID, models.StatusRejected, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrAlreadyResolved
		}

		updated, err = tx.GetRequest(ctx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetRequest возвращает заявку продавцу или заявителю
func (s *RequestService) GetRequest(ctx context.Context, requestID, actorID uuid.UUID) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !policy.IsSeller(req, actorID) && !policy.IsRequester(req, actorID) {
		return nil, models.ErrForbidden
	}
	return req, nil
}

// ListOutgoing - заявки, поданные пользователем
func (s *RequestService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]models.Request, error) {
	return s.store.ListRequests(ctx, store.RequestFilter{RequesterID: userID})
}

// ListIncoming - ожидающие ответа заявки на объекты пользователя
func (s *RequestService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]models.Request, error) {
	return s.store.ListRequests(ctx, store.RequestFilter{SellerID: userID, Status: models.StatusPending})
}

// ListPurchases - сделки, где пользователь покупатель или арендатор.
// Пустой typ возвращает оба вида.
func (s *RequestService) ListPurchases(ctx context.Context, userID uuid.UUID, typ models.TransactionType) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, store.TransactionFilter{BuyerRenterID: userID, Type: typ})
}

// ListSales - сделки по объектам пользователя
func (s *RequestService) ListSales(ctx context.Context, ownerID uuid.UUID, typ models.TransactionType) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, store.TransactionFilter{OwnerID: ownerID, Type: typ})
}
