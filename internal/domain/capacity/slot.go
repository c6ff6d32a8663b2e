package capacity

import (
	"time"

	"github.com/google/uuid"
)

type Slot struct {
	PartnerID     uuid.UUID
	ServiceType   string
	Window        TimeWindow
	MaxUnits      int32
	ReservedUnits int32
}

func (s Slot) Available() int32 {
	if s.ReservedUnits >= s.MaxUnits {
		return 0
	}
	return s.MaxUnits - s.ReservedUnits
}

// Valid reports whether the ledger invariant 0 <= reserved <= max holds.
func (s Slot) Valid() bool {
	return s.ReservedUnits >= 0 && s.ReservedUnits <= s.MaxUnits
}

// DayBounds returns the [00:00, 24:00) interval of date in loc, used by availability queries.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
