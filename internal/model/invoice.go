package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how an invoice is settled.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentUPI          PaymentMethod = "upi"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentBankTransfer:
		return true
	}
	return false
}

// InvoiceItemType distinguishes occupancy charges from consumables.
type InvoiceItemType string

const (
	InvoiceItemTableSession InvoiceItemType = "table_session"
	InvoiceItemConsumable   InvoiceItemType = "consumable"
)

// Invoice is the immutable financial record of a closed session. Only the
// payment fields change after creation.
type Invoice struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	Number         string          `gorm:"uniqueIndex;size:64;not null" json:"number"`
	SessionID      *int64          `gorm:"uniqueIndex" json:"sessionId,omitempty"`
	OrganizationID int64           `gorm:"index;not null" json:"organizationId"`
	CustomerName   string          `gorm:"size:128" json:"customerName,omitempty"`
	CustomerPhone  string          `gorm:"size:32" json:"customerPhone,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"taxAmount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discountAmount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	PaymentMethod  PaymentMethod   `gorm:"size:16;not null" json:"paymentMethod"`
	PaymentStatus  PaymentStatus   `gorm:"size:16;not null" json:"paymentStatus"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	CreatedBy      int64           `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Associations
	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

// InvoiceItem is one billed line of an invoice.
type InvoiceItem struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	InvoiceID   int64           `gorm:"index;not null" json:"invoiceId"`
	ItemType    InvoiceItemType `gorm:"size:16;not null" json:"itemType"`
	RefID       int64           `json:"refId"`
	Description string          `gorm:"size:256;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
}
