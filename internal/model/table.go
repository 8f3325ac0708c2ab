package model

import "time"

// TableStatus is the occupancy state of a rentable table.
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableMaintenance TableStatus = "maintenance"
	TableReserved    TableStatus = "reserved"
)

// Table represents a rentable unit of a venue.
type Table struct {
	ID             int64       `gorm:"primaryKey" json:"id"`
	OrganizationID int64       `gorm:"index;not null" json:"organizationId"`
	Label          string      `gorm:"size:64;not null" json:"label"`
	Status         TableStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}
