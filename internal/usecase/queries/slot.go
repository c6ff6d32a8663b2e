package queries

import (
	"context"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrInvalidSlotQuery = errs.Class("service_type and date are required", errs.ErrValidation)

type SlotFilter struct {
	PartnerID   *uuid.UUID
	ServiceType string
	// Day is a calendar date (2006-01-02) in the service area's time zone.
	Day string
}

const dayLayout = "2006-01-02"

//go:generate mockgen -source=slot.go -destination=../../../tests/mock/queries/mock_slot.go -package=queriesmock
type SlotQueries interface {
	ListAvailable(ctx context.Context, filter SlotFilter) ([]*SlotView, error)
}

type SlotReadStore interface {
	ListBetween(ctx context.Context, partnerID *uuid.UUID, serviceType string, from, to time.Time) ([]*SlotView, error)
}

type slotQueriesImpl struct {
	store SlotReadStore
	loc   *time.Location
}

// NewSlotQueries interprets dates in loc, the service area's time zone.
func NewSlotQueries(store SlotReadStore, loc *time.Location) SlotQueries {
	return &slotQueriesImpl{store: store, loc: loc}
}

// ListAvailable returns slots starting on the given day that still have room.
func (q *slotQueriesImpl) ListAvailable(ctx context.Context, filter SlotFilter) ([]*SlotView, error) {
	if _, err := order.NewServiceType(filter.ServiceType); err != nil {
		return nil, ErrInvalidSlotQuery
	}
	loc := q.loc
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dayLayout, filter.Day, loc)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidSlotQuery)
	}
	from, to := capacity.DayBounds(day, loc)
	slots, err := q.store.ListBetween(ctx, filter.PartnerID, filter.ServiceType, from, to)
	if err != nil {
		return nil, err
	}

	available := make([]*SlotView, 0, len(slots))
	for _, s := range slots {
		s.Available = capacity.Slot{MaxUnits: s.MaxUnits, ReservedUnits: s.ReservedUnits}.Available()
		if s.Available > 0 {
			available = append(available, s)
		}
	}
	return available, nil
}
