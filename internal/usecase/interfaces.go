package usecase

import "context"

// BookingStatusProvider resolves the current status of a booking from the
// reservation system. The chat core only ever consumes the status string;
// bookings themselves stay external.
type BookingStatusProvider interface {
	BookingStatus(ctx context.Context, bookingID string) (string, error)
}
