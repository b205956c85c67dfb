package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListingKind определяет, сдаётся объект или продаётся
type ListingKind string

const (
	KindForSale ListingKind = "for_sale"
	KindForRent ListingKind = "for_rent"
)

// Availability - состояние доступности объекта
type Availability string

const (
	Available Availability = "available"
	Sold      Availability = "sold"
	Rented    Availability = "rented"
)

// Listing представляет объект недвижимости в системе
type Listing struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID    `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title        string       `json:"title" gorm:"not null"`
	Description  string       `json:"description"`
	Address      string       `json:"address"`
	Kind         ListingKind  `json:"kind" gorm:"not null"`
	Availability Availability `json:"availability" gorm:"not null;index"`
	Price        int64        `json:"price"`
	ImageRef     string       `json:"image_ref,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	Owner *User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT"`
}

// Valid проверяет, что значение вида объекта известно
func (k ListingKind) Valid() bool {
	return k == KindForSale || k == KindForRent
}

// Accepts сообщает, может ли заявка данного типа быть подана на объект этого вида
func (k ListingKind) Accepts(t RequestType) bool {
	switch k {
	case KindForSale:
		return t == RequestBuy
	case KindForRent:
		return t == RequestRent
	}
	return false
}

// Transition переводит объект из Available в Sold или Rented.
// Метод не выполняет ввода-вывода: сохранение лежит на вызывающем коде.
func (l Listing) Transition(outcome TransactionType) (Listing, error) {
	if l.Availability != Available {
		return l, fmt.Errorf("%w: объект уже в состоянии %s", ErrInvalidTransition, l.Availability)
	}

	switch {
	case outcome == TransactionSold && l.Kind == KindForSale:
		l.Availability = Sold
	case outcome == TransactionRented && l.Kind == KindForRent:
		l.Availability = Rented
	default:
		return l, fmt.Errorf("%w: исход %s недопустим для вида %s", ErrInvalidTransition, outcome, l.Kind)
	}

	return l, nil
}
