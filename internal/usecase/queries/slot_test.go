//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/queries"
	queriesmock "freshfold/tests/mock/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestListAvailable(t *testing.T) {
	la := time.FixedZone("PDT", -7*60*60)

	t.Run("the day is read in the service time zone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := queriesmock.NewMockSlotReadStore(ctrl)
		q := queries.NewSlotQueries(store, la)

		wantFrom := time.Date(2025, 6, 3, 0, 0, 0, 0, la)
		store.EXPECT().ListBetween(gomock.Any(), nil, "laundry", gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *uuid.UUID, _ string, from, to time.Time) ([]*queries.SlotView, error) {
				assert.True(t, wantFrom.Equal(from), "from=%s", from)
				assert.True(t, wantFrom.AddDate(0, 0, 1).Equal(to), "to=%s", to)
				return nil, nil
			})

		slots, err := q.ListAvailable(t.Context(), queries.SlotFilter{ServiceType: "laundry", Day: "2025-06-03"})
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("full slots are dropped and availability is computed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := queriesmock.NewMockSlotReadStore(ctrl)
		q := queries.NewSlotQueries(store, time.UTC)
		partner := uuid.New()

		store.EXPECT().ListBetween(gomock.Any(), &partner, "cleaning", gomock.Any(), gomock.Any()).
			Return([]*queries.SlotView{
				{PartnerID: partner, MaxUnits: 3, ReservedUnits: 1},
				{PartnerID: partner, MaxUnits: 2, ReservedUnits: 2},
			}, nil)

		slots, err := q.ListAvailable(t.Context(), queries.SlotFilter{PartnerID: &partner, ServiceType: "cleaning", Day: "2025-06-03"})
		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, int32(2), slots[0].Available)
	})

	t.Run("invalid filters are rejected before the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := queriesmock.NewMockSlotReadStore(ctrl)
		q := queries.NewSlotQueries(store, time.UTC)

		for _, f := range []queries.SlotFilter{
			{ServiceType: "gardening", Day: "2025-06-03"},
			{ServiceType: "laundry", Day: "06/03/2025"},
			{ServiceType: "laundry"},
		} {
			_, err := q.ListAvailable(t.Context(), f)
			assert.ErrorIs(t, err, queries.ErrInvalidSlotQuery)
			assert.True(t, errs.IsValidation(err))
		}
	})
}
