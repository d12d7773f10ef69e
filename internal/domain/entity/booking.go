package entity

import "strings"

// Booking statuses under which a chat may still receive new messages. The
// booking system itself lives outside this service; only the status string
// crosses the boundary.
var openBookingStatuses = map[string]struct{}{
	"pending":           {},
	"approved":          {},
	"active":            {},
	"confirmed":         {},
	"pending_payment":   {},
	"payment_succeeded": {},
	"in_progress":       {},
}

// IsOpenBookingStatus reports whether a booking in the given status still
// allows messaging. Case-insensitive; empty input is closed.
func IsOpenBookingStatus(status string) bool {
	if status == "" {
		return false
	}
	_, ok := openBookingStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}
