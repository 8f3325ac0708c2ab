package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stocked consumable sold at the venue.
type Item struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	OrganizationID int64           `gorm:"index;not null" json:"organizationId"`
	Name           string          `gorm:"size:128;not null" json:"name"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity  int             `gorm:"not null" json:"stockQuantity"`
	IsAvailable    bool            `gorm:"not null" json:"isAvailable"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SessionOrder is a consumable sold into a running session. Name and unit
// price are captured at order time.
type SessionOrder struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	SessionID int64           `gorm:"index;not null" json:"sessionId"`
	ItemID    int64           `gorm:"index;not null" json:"itemId"`
	ItemName  string          `gorm:"size:128;not null" json:"itemName"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"lineTotal"`
	OrderedAt time.Time       `gorm:"not null" json:"orderedAt"`
	ServedBy  int64           `json:"servedBy"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
}
