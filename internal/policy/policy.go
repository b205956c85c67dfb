// Package policy содержит предикаты доступа. Функции чистые и не паникуют на nil.
package policy

import (
	"github.com/google/uuid"

	"github.com/rajivgeraev/realty-api/internal/models"
)

// IsOwner проверяет, что пользователь владеет объектом
func IsOwner(listing *models.Listing, userID uuid.UUID) bool {
	return listing != nil && userID != uuid.Nil && listing.OwnerID == userID
}

// IsSeller проверяет, что пользователь - продавец по заявке
func IsSeller(req *models.Request, userID uuid.UUID) bool {
	return req != nil && userID != uuid.Nil && req.SellerID == userID
}

// IsRequester проверяет, что пользователь подал заявку
func IsRequester(req *models.Request, userID uuid.UUID) bool {
	return req != nil && userID != uuid.Nil && req.RequesterID == userID
}

// IsBuyer проверяет, что пользователь - покупатель/арендатор в сделке
func IsBuyer(txn *models.Transaction, userID uuid.UUID) bool {
	return txn != nil && userID != uuid.Nil && txn.BuyerRenterID == userID
}

// IsAdmin проверяет, что пользователь - администратор
func IsAdmin(user *models.User) bool {
	return user != nil && user.Role == models.RoleAdmin
}

// CanDeleteListing - владелец или администратор
func CanDeleteListing(listing *models.Listing, actor *models.User) bool {
	if actor == nil {
		return false
	}
	return IsOwner(listing, actor.ID) || IsAdmin(actor)
}

// CanDeleteUser - сам пользователь или администратор
func CanDeleteUser(target uuid.UUID, actor *models.User) bool {
	if actor == nil {
		return false
	}
	return (target != uuid.Nil && actor.ID == target) || IsAdmin(actor)
}
