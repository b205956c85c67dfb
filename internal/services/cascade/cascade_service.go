package cascade

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/models"
	"github.com/rajivgeraev/realty-api/internal/policy"
	"github.com/rajivgeraev/realty-api/internal/store"
	"github.com/rajivgeraev/realty-api/internal/utils"
)

// SystemActor - администратор без учётной записи, от имени которого
// работают служебные команды
var SystemActor = &models.User{Role: models.RoleAdmin}

// Report описывает результат каскадного удаления
type Report struct {
	Deleted       map[store.Table]int64 `json:"deleted"`
	BlobsReleased int                   `json:"blobs_released"`
	BlobsFailed   int                   `json:"blobs_failed"`
}

// CascadeService удаляет объекты и пользователей вместе со всеми зависимыми записями
type CascadeService struct {
	store      store.Store
	blobs      store.BlobStore
	jwtService *utils.JWTService
}

// NewCascadeService создает новый экземпляр CascadeService
func NewCascadeService(cfg *config.Config, st store.Store, blobs store.BlobStore) *CascadeService {
	return &CascadeService{
		store:      st,
		blobs:      blobs,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// ResolveActor загружает пользователя, выполняющего действие.
// Пользователь, которого нет в базе, получает обычную роль.
func (s *CascadeService) ResolveActor(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return &models.User{ID: id, Role: models.RoleUser}, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteListing удаляет объект, его избранное, заявки и сделки одной атомарной
// единицей, затем освобождает изображение
func (s *CascadeService) DeleteListing(ctx context.Context, actor *models.User, listingID uuid.UUID) (*Report, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !policy.CanDeleteListing(listing, actor) {
		return nil, models.ErrForbidden
	}

	report := &Report{Deleted: map[store.Table]int64{}}
	var refs []string

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		locked, err := tx.LockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if locked.ImageRef != "" {
			refs = append(refs, locked.ImageRef)
		}
		return execute(ctx, tx, listingPlan([]uuid.UUID{locked.ID}), report.Deleted)
	})
	if err != nil {
		return nil, cascadeError(err)
	}

	s.releaseBlobs(ctx, refs, report)

	log.Printf("Объект %s удалён: %v", listingID, report.Deleted)
	return report, nil
}

// DeleteUser удаляет пользователя, все его объекты с их зависимыми записями,
// его избранное, заявки и сделки. Либо удаляется всё, либо ничего.
func (s *CascadeService) DeleteUser(ctx context.Context, actor *models.User, userID uuid.UUID) (*Report, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if !policy.CanDeleteUser(userID, actor) {
		return nil, models.ErrForbidden
	}

	report := &Report{Deleted: map[store.Table]int64{}}
	var refs []string

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		owned, err := tx.LockListingsByOwner(ctx, userID)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(owned))
		for _, l := range owned {
			ids = append(ids, l.ID)
			if l.ImageRef != "" {
				refs = append(refs, l.ImageRef)
			}
		}

		if err := execute(ctx, tx, userPlan(userID, ids), report.Deleted); err != nil {
			return err
		}
		if report.Deleted[store.TableUsers] == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, cascadeError(err)
	}

	s.releaseBlobs(ctx, refs, report)

	log.Printf("Пользователь %s удалён: %v", userID, report.Deleted)
	return report, nil
}

// releaseBlobs вызывается после фиксации. Ошибки только логируются
func (s *CascadeService) releaseBlobs(ctx context.Context, refs []string, report *Report) {
	if s.blobs == nil {
		return
	}
	for _, ref := range refs {
		if err := s.blobs.Delete(ctx, ref); err != nil {
			log.Printf("Не удалось удалить изображение %s: %v", ref, err)
			report.BlobsFailed++
			continue
		}
		report.BlobsReleased++
	}
}

// cascadeError скрывает ошибку драйвера от клиента, подробности идут в лог
func cascadeError(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	log.Printf("Каскадное удаление не выполнено: %v", err)
	return models.ErrCascadeFailed
}
