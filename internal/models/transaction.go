package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType - итог сделки
type TransactionType string

const (
	TransactionSold   TransactionType = "sold"
	TransactionRented TransactionType = "rented"
)

// Transaction - неизменяемая запись о завершённой продаже или аренде.
// Сумма и контакты копируются в момент принятия заявки.
type Transaction struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ListingID     uuid.UUID       `json:"listing_id" gorm:"type:uuid;not null;index"`
	BuyerRenterID uuid.UUID       `json:"buyer_renter_id" gorm:"type:uuid;not null;index"`
	Date          time.Time       `json:"date" gorm:"column:transaction_date;not null"`
	Type          TransactionType `json:"type" gorm:"not null"`
	Amount        int64           `json:"amount"`
	BuyerContact  ContactInfo     `json:"buyer_contact" gorm:"embedded;embeddedPrefix:buyer_"`

	Listing     *Listing `json:"-" gorm:"foreignKey:ListingID;constraint:OnDelete:RESTRICT"`
	BuyerRenter *User    `json:"-" gorm:"foreignKey:BuyerRenterID;constraint:OnDelete:RESTRICT"`
}

// NewTransaction строит запись сделки из принятой заявки и цены объекта
func NewTransaction(listing Listing, req Request, at time.Time) Transaction {
	return Transaction{
		ID:            uuid.New(),
		ListingID:     listing.ID,
		BuyerRenterID: req.RequesterID,
		Date:          at,
		Type:          req.Type.Outcome(),
		Amount:        listing.Price,
		BuyerContact:  req.Contact,
	}
}
