// Package sequence issues collision-free counters for session codes and
// invoice numbers.
package sequence

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-billing-backend/internal/model"
)

// Namespace separates independent counter families.
type Namespace string

const (
	SessionCode Namespace = "session_code"
	Invoice     Namespace = "invoice"
)

// Next increments the (ns, scope) counter inside tx and returns the new value.
//
// The UPDATE holds the row lock until tx ends, so concurrent callers on the
// same scope are serialized and never observe the same value.
func Next(tx *gorm.DB, ns Namespace, scope string) (int64, error) {
	seed := model.Sequence{Namespace: string(ns), Scope: scope}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("seed sequence %s/%s: %w", ns, scope, err)
	}

	res := tx.Model(&model.Sequence{}).
		Where("namespace = ? AND scope = ?", string(ns), scope).
		UpdateColumn("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("increment sequence %s/%s: %w", ns, scope, res.Error)
	}
	if res.RowsAffected != 1 {
		return 0, fmt.Errorf("increment sequence %s/%s: %d rows affected", ns, scope, res.RowsAffected)
	}

	var value int64
	if err := tx.Model(&model.Sequence{}).
		Select("value").
		Where("namespace = ? AND scope = ?", string(ns), scope).
		Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s/%s: %w", ns, scope, err)
	}
	return value, nil
}

// DayScope is the session-code scope of an organization for the calendar day
// of t in loc.
func DayScope(orgID int64, t time.Time, loc *time.Location) string {
	return fmt.Sprintf("org:%d:%s", orgID, t.In(loc).Format("2006-01-02"))
}

// MonthScope is the invoice scope of an organization for the month of t in loc.
func MonthScope(orgID int64, t time.Time, loc *time.Location) string {
	return fmt.Sprintf("org:%d:%s", orgID, t.In(loc).Format("2006-01"))
}
