//go:build unit

package capacity_test

import (
	"testing"
	"time"

	"freshfold/internal/domain/capacity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWindow(t *testing.T) {
	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))

	w, err := capacity.NewTimeWindow(start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, w.Start().Location())
	assert.Equal(t, 2*time.Hour, w.Duration())

	_, err = capacity.NewTimeWindow(start, start)
	assert.ErrorIs(t, err, capacity.ErrInvalidWindow)
}

func TestReservationToken(t *testing.T) {
	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	w, err := capacity.NewTimeWindow(start, start.Add(time.Hour))
	require.NoError(t, err)

	_, err = capacity.NewReservationToken(uuid.New(), w, 0)
	assert.ErrorIs(t, err, capacity.ErrInvalidUnits)

	_, err = capacity.NewReservationToken(uuid.New(), capacity.TimeWindow{}, 1)
	assert.ErrorIs(t, err, capacity.ErrInvalidWindow)
}

func TestSlot(t *testing.T) {
	assert.Equal(t, int32(2), capacity.Slot{MaxUnits: 5, ReservedUnits: 3}.Available())
	assert.Equal(t, int32(0), capacity.Slot{MaxUnits: 5, ReservedUnits: 5}.Available())
	assert.True(t, capacity.Slot{MaxUnits: 5, ReservedUnits: 5}.Valid())
	assert.False(t, capacity.Slot{MaxUnits: 5, ReservedUnits: 6}.Valid())
	assert.False(t, capacity.Slot{MaxUnits: 5, ReservedUnits: -1}.Valid())

	loc := time.FixedZone("PST", -8*3600)
	from, to := capacity.DayBounds(time.Date(2025, 6, 3, 23, 30, 0, 0, loc), loc)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, loc), from)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}
