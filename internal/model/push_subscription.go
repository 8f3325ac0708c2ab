package model

import "time"

// PushSubscription is a staff browser subscribed to closing notices of one
// organization.
type PushSubscription struct {
	Endpoint       string    `gorm:"primaryKey"`
	P256DH         string    `gorm:"column:p256dh;not null"`
	Auth           string    `gorm:"not null"`
	OrganizationID int64     `gorm:"index;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}
