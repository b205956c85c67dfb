package cascade

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/store"
)

// DeleteStep удаляет строки Table, у которых Column входит в IDs
type DeleteStep struct {
	Table  store.Table
	Column string
	IDs    []uuid.UUID
}

// listingPlan - зависимые записи объектов, затем сами объекты
func listingPlan(ids []uuid.UUID) []DeleteStep {
	return []DeleteStep{
		{store.TableFavorites, "listing_id", ids},
		{store.TableRequests, "listing_id", ids},
		{store.TableTransactions, "listing_id", ids},
		{store.TableListings, "id", ids},
	}
}

// userPlan - всё, что ссылается на пользователя напрямую или через его объекты.
// Листья удаляются раньше родителей, поэтому ограничения внешних ключей
// не срабатывают ни на одном шаге.
func userPlan(userID uuid.UUID, owned []uuid.UUID) []DeleteStep {
	user := []uuid.UUID{userID}

	plan := []DeleteStep{
		{store.TableFavorites, "listing_id", owned},
		{store.TableRequests, "listing_id", owned},
		{store.TableTransactions, "listing_id", owned},

		{store.TableFavorites, "user_id", user},
		{store.TableRequests, "requester_id", user},
		{store.TableRequests, "seller_id", user},
		{store.TableTransactions, "buyer_renter_id", user},

		{store.TableListings, "id", owned},
		{store.TableUsers, "id", user},
	}
	return plan
}

// execute выполняет план внутри атомарной единицы и считает удалённые строки
func execute(ctx context.Context, tx store.Tx, plan []DeleteStep, deleted map[store.Table]int64) error {
	for _, step := range plan {
		if len(step.IDs) == 0 {
			continue
		}
		n, err := tx.DeleteWhere(ctx, step.Table, step.Column, step.IDs)
		if err != nil {
			return fmt.Errorf("удаление из %s по %s: %w", step.Table, step.Column, err)
		}
		deleted[step.Table] += n
	}
	return nil
}
