package capacity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWindow    = errors.New("window start must be before end")
	ErrInvalidUnits     = errors.New("reservation units must be positive")
	ErrCapacityExceeded = errors.New("slot capacity exceeded")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrWrongService     = errors.New("slot is offered for another service type")
)

// TimeWindow is a half-open [start, end) interval, normalized to UTC.
type TimeWindow struct {
	start time.Time
	end   time.Time
}

func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, ErrInvalidWindow
	}
	return TimeWindow{start: start.UTC(), end: end.UTC()}, nil
}

func (w TimeWindow) Start() time.Time        { return w.start }
func (w TimeWindow) End() time.Time          { return w.end }
func (w TimeWindow) Duration() time.Duration { return w.end.Sub(w.start) }
func (w TimeWindow) IsZero() bool            { return w.start.IsZero() && w.end.IsZero() }
func (w TimeWindow) Equal(o TimeWindow) bool { return w.start.Equal(o.start) && w.end.Equal(o.end) }
func (w TimeWindow) StartsWithin(now time.Time, d time.Duration) bool {
	return w.start.Sub(now) < d
}

// ReservationToken identifies one claimed block of units on a slot.
type ReservationToken struct {
	PartnerID uuid.UUID
	Window    TimeWindow
	Units     int32
}

func NewReservationToken(partnerID uuid.UUID, window TimeWindow, units int32) (ReservationToken, error) {
	if units <= 0 {
		return ReservationToken{}, ErrInvalidUnits
	}
	if window.IsZero() {
		return ReservationToken{}, ErrInvalidWindow
	}
	return ReservationToken{PartnerID: partnerID, Window: window, Units: units}, nil
}
