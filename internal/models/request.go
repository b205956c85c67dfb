package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestType - тип заявки: покупка или аренда
type RequestType string

const (
	RequestBuy  RequestType = "buy"
	RequestRent RequestType = "rent"
)

// RequestStatus - статус заявки. Pending -> Accepted | Rejected, дальше не меняется
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// ContactInfo - контактные данные покупателя/арендатора, свободная форма
type ContactInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Request представляет заявку на покупку или аренду объекта
type Request struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	ListingID   uuid.UUID     `json:"listing_id" gorm:"type:uuid;not null;index"`
	RequesterID uuid.UUID     `json:"requester_id" gorm:"type:uuid;not null;index"`
	SellerID    uuid.UUID     `json:"seller_id" gorm:"type:uuid;not null;index"`
	Type        RequestType   `json:"type" gorm:"not null"`
	Status      RequestStatus `json:"status" gorm:"not null;index"`
	Contact     ContactInfo   `json:"contact" gorm:"embedded;embeddedPrefix:contact_"`
	Message     string        `json:"message"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`

	// Связи нужны только для внешних ключей в схеме gorm
	Listing   *Listing `json:"-" gorm:"foreignKey:ListingID;constraint:OnDelete:RESTRICT"`
	Requester *User    `json:"-" gorm:"foreignKey:RequesterID;constraint:OnDelete:RESTRICT"`
	Seller    *User    `json:"-" gorm:"foreignKey:SellerID;constraint:OnDelete:RESTRICT"`
}

// Valid проверяет, что тип заявки известен
func (t RequestType) Valid() bool {
	return t == RequestBuy || t == RequestRent
}

// Outcome возвращает тип сделки, которой завершается принятая заявка
func (t RequestType) Outcome() TransactionType {
	if t == RequestRent {
		return TransactionRented
	}
	return TransactionSold
}

// IsPending сообщает, ожидает ли заявка ответа продавца
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}
