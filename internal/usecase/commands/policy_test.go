//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/user"
	reqdto "freshfold/internal/handler/dto/request"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/shared"
	"freshfold/tests/common/builder"
	"freshfold/tests/common/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminCommands(store *memstore.Store) commands.AdminCommands {
	return commands.NewAdminCommands(store, clock.NewMockClock(builder.BaseTime), discardLogger())
}

func TestAdminCommands_PublishPolicy(t *testing.T) {
	ctx := context.Background()
	admin := staff(user.RoleAdmin)

	t.Run("versions increase and only the newest is active", func(t *testing.T) {
		store := memstore.New()
		cmds := newAdminCommands(store)

		v1, err := cmds.PublishPolicy(ctx, admin, reqdto.PublishPolicyRequest{ServiceType: "laundry", NoticeHours: 24, FeePercent: 50})
		require.NoError(t, err)
		assert.Equal(t, int32(1), v1.Version())

		v2, err := cmds.PublishPolicy(ctx, admin, reqdto.PublishPolicyRequest{ServiceType: "laundry", NoticeHours: 12, FeePercent: 100})
		require.NoError(t, err)
		assert.Equal(t, int32(2), v2.Version())
		assert.Equal(t, admin.UserID, v2.CreatedBy())

		active, err := store.CommandReads().ActivePolicy(ctx, "laundry")
		require.NoError(t, err)
		assert.Equal(t, v2.ID(), active.ID())
		assert.Equal(t, int32(100), active.Terms().FeePercent)
	})

	t.Run("service types are versioned independently", func(t *testing.T) {
		store := memstore.New()
		cmds := newAdminCommands(store)

		_, err := cmds.PublishPolicy(ctx, admin, reqdto.PublishPolicyRequest{ServiceType: "laundry", NoticeHours: 24, FeePercent: 50})
		require.NoError(t, err)
		c1, err := cmds.PublishPolicy(ctx, admin, reqdto.PublishPolicyRequest{ServiceType: "cleaning", NoticeHours: 48, FeePercent: 25})
		require.NoError(t, err)
		assert.Equal(t, int32(1), c1.Version())
	})

	t.Run("rejections", func(t *testing.T) {
		cases := []struct {
			name  string
			actor shared.Actor
			req   reqdto.PublishPolicyRequest
			errIs error
		}{
			{
				name:  "operator",
				actor: staff(user.RoleOperator),
				req:   reqdto.PublishPolicyRequest{ServiceType: "laundry", NoticeHours: 24, FeePercent: 50},
				errIs: commands.ErrAdminOnly,
			},
			{
				name:  "anonymous",
				actor: shared.Actor{},
				req:   reqdto.PublishPolicyRequest{ServiceType: "laundry", NoticeHours: 24, FeePercent: 50},
				errIs: commands.ErrAdminOnly,
			},
			{
				name:  "fee over 100",
				actor: admin,
				req:   reqdto.PublishPolicyRequest{ServiceType: "laundry", NoticeHours: 24, FeePercent: 150},
				errIs: commands.ErrInvalidPolicyTerms,
			},
			{
				name:  "unknown service",
				actor: admin,
				req:   reqdto.PublishPolicyRequest{ServiceType: "ironing", NoticeHours: 24, FeePercent: 50},
				errIs: commands.ErrInvalidServiceParams,
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				store := memstore.New()
				_, err := newAdminCommands(store).PublishPolicy(ctx, tc.actor, tc.req)
				assert.True(t, errs.Is(err, tc.errIs), "got %v", err)
				assert.Zero(t, store.Commits)
			})
		}
	})
}

func TestAdminCommands_UpsertSlot(t *testing.T) {
	ctx := context.Background()
	admin := staff(user.RoleAdmin)
	partner := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	start := builder.BaseTime.Add(48 * time.Hour)
	req := reqdto.UpsertSlotRequest{
		PartnerID:   partner,
		ServiceType: "laundry",
		Start:       start,
		End:         start.Add(2 * time.Hour),
		MaxUnits:    4,
	}

	t.Run("creates and resizes while keeping reservations", func(t *testing.T) {
		store := memstore.New()
		cmds := newAdminCommands(store)

		slot, err := cmds.UpsertSlot(ctx, admin, req)
		require.NoError(t, err)
		assert.Equal(t, int32(4), slot.MaxUnits)
		assert.Equal(t, int32(0), slot.ReservedUnits)

		require.NoError(t, store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			_, err := tx.Capacity().Reserve(ctx, partner, slot.ServiceType, slot.Window, 2)
			return err
		}))

		resized := req
		resized.MaxUnits = 2
		slot, err = cmds.UpsertSlot(ctx, admin, resized)
		require.NoError(t, err)
		assert.Equal(t, int32(2), slot.MaxUnits)
		assert.Equal(t, int32(2), slot.ReservedUnits)
		assert.Equal(t, int32(0), slot.Available())

		resized.MaxUnits = 1
		_, err = cmds.UpsertSlot(ctx, admin, resized)
		assert.True(t, errs.Is(err, commands.ErrCapacityBelowBooked))
		assert.True(t, errs.Is(err, errs.ErrConflict))
	})

	t.Run("inverted window", func(t *testing.T) {
		bad := req
		bad.End = bad.Start.Add(-time.Hour)
		_, err := newAdminCommands(memstore.New()).UpsertSlot(ctx, admin, bad)
		assert.True(t, errs.Is(err, commands.ErrInvalidSlot))
		assert.True(t, errs.Is(err, capacity.ErrInvalidWindow))
	})

	t.Run("operators cannot change capacity", func(t *testing.T) {
		_, err := newAdminCommands(memstore.New()).UpsertSlot(ctx, staff(user.RoleOperator), req)
		assert.True(t, errs.Is(err, commands.ErrAdminOnly))
	})
}
