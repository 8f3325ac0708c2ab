package model

// Sequence is a durable counter keyed by namespace and scope.
type Sequence struct {
	Namespace string `gorm:"primaryKey;size:32"`
	Scope     string `gorm:"primaryKey;size:64"`
	Value     int64  `gorm:"not null"`
}
