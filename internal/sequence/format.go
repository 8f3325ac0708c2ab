package sequence

import (
	"fmt"
	"time"
)

// FormatSessionCode renders e.g. SES-7-20240513-001.
func FormatSessionCode(prefix string, orgID int64, t time.Time, loc *time.Location, n int64) string {
	return fmt.Sprintf("%s-%d-%s-%03d", prefix, orgID, t.In(loc).Format("20060102"), n)
}

// FormatInvoiceNumber renders e.g. INV-7-202405-0001.
func FormatInvoiceNumber(prefix string, orgID int64, t time.Time, loc *time.Location, n int64) string {
	return fmt.Sprintf("%s-%d-%s-%04d", prefix, orgID, t.In(loc).Format("200601"), n)
}
