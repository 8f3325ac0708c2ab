package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// PaymentStatus tracks settlement of a session or invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
)

// Session is one timed occupancy of a table.
//
// The pricing columns are a copy of the policy resolved at start, so later
// catalog edits never change what a running session is billed.
type Session struct {
	ID             int64         `gorm:"primaryKey" json:"id"`
	Code           string        `gorm:"uniqueIndex;size:64;not null" json:"code"`
	TableID        int64         `gorm:"index;not null" json:"tableId"`
	OrganizationID int64         `gorm:"index;not null" json:"organizationId"`
	ServiceTypeID  int64         `gorm:"not null" json:"serviceTypeId"`
	CustomerID     *int64        `gorm:"index" json:"customerId,omitempty"`
	GuestName      string        `gorm:"size:128" json:"guestName,omitempty"`
	GuestPhone     string        `gorm:"size:32" json:"guestPhone,omitempty"`
	Status         SessionStatus `gorm:"index;size:16;not null" json:"status"`

	StartTime        time.Time     `gorm:"not null" json:"startTime"`
	PausedAt         *time.Time    `json:"pausedAt,omitempty"`
	ExcludedDuration time.Duration `gorm:"not null" json:"excludedDuration"`
	EndTime          *time.Time    `json:"endTime,omitempty"`
	BillableMinutes  int64         `gorm:"not null" json:"billableMinutes"`

	PricingKind   PricingKind     `gorm:"size:16;not null" json:"pricingKind"`
	FixedAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"fixedAmount"`
	RatePerMinute decimal.Decimal `gorm:"type:decimal(12,6);not null" json:"ratePerMinute"`
	CapMinutes    int             `gorm:"not null" json:"capMinutes"`
	UnlimitedTime bool            `gorm:"not null" json:"unlimitedTime"`

	OccupancyAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"occupancyAmount"`
	ConsumableSubtotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"consumableSubtotal"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	PaymentStatus      PaymentStatus   `gorm:"size:16;not null" json:"paymentStatus"`

	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Closed reports whether the session reached a terminal state.
func (s Session) Closed() bool {
	return s.Status == SessionCompleted || s.Status == SessionCancelled
}
