package commands

import (
	"context"
	"log/slog"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/domain/policy"
	"freshfold/internal/domain/user"
	reqdto "freshfold/internal/handler/dto/request"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/shared"
)

var (
	ErrAdminOnly           = errs.Class("admin role required", errs.ErrForbidden)
	ErrInvalidPolicyTerms  = errs.Class("invalid policy terms", errs.ErrValidation)
	ErrPolicyRaced         = errs.Class("another policy version was published concurrently", errs.ErrConflict)
	ErrCapacityBelowBooked = errs.Class("max units cannot drop below reserved units", errs.ErrConflict)
)

//go:generate mockgen -source=policy.go -destination=../../../tests/mock/commands/mock_policy.go -package=commandsmock
type AdminCommands interface {
	// PublishPolicy supersedes the active policy of a service type. Orders keep
	// the version they were booked with.
	PublishPolicy(ctx context.Context, actor shared.Actor, req reqdto.PublishPolicyRequest) (*policy.CancellationPolicy, error)
	UpsertSlot(ctx context.Context, actor shared.Actor, req reqdto.UpsertSlotRequest) (capacity.Slot, error)
}

type adminCommandsImpl struct {
	uow    shared.UnitOfWork
	clock  clock.Clock
	logger *slog.Logger
}

func NewAdminCommands(uow shared.UnitOfWork, clock clock.Clock, logger *slog.Logger) AdminCommands {
	return &adminCommandsImpl{uow: uow, clock: clock, logger: logger}
}

func (c *adminCommandsImpl) PublishPolicy(ctx context.Context, actor shared.Actor, req reqdto.PublishPolicyRequest) (*policy.CancellationPolicy, error) {
	if !isAdmin(actor) {
		return nil, ErrAdminOnly
	}
	st, err := order.NewServiceType(req.ServiceType)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidServiceParams)
	}
	terms := policy.Terms{NoticeHours: req.NoticeHours, FeePercent: req.FeePercent}

	var published *policy.CancellationPolicy
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		current, err := tx.Policies().ActiveForUpdate(ctx, st.String())
		if err != nil {
			if !infra.IsKind(err, infra.KindNotFound) {
				return errs.Wrap(err, "failed to load active policy")
			}
			current = nil
		}

		next, err := policy.NewVersion(st.String(), current, terms, actor.UserID, c.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrInvalidPolicyTerms)
		}
		if current != nil {
			if err := tx.Policies().Deactivate(ctx, current.ID()); err != nil {
				if infra.IsKind(err, infra.KindConflict) {
					return errs.Mark(err, ErrPolicyRaced)
				}
				return err
			}
		}
		if err := tx.Policies().Insert(ctx, next); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return errs.Mark(err, ErrPolicyRaced)
			}
			return err
		}
		published = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Cancellation policy published",
		slog.String("service_type", st.String()),
		slog.Int("version", int(published.Version())),
		slog.Int("notice_hours", int(terms.NoticeHours)),
		slog.Int("fee_percent", int(terms.FeePercent)))
	return published, nil
}

func (c *adminCommandsImpl) UpsertSlot(ctx context.Context, actor shared.Actor, req reqdto.UpsertSlotRequest) (capacity.Slot, error) {
	if !isAdmin(actor) {
		return capacity.Slot{}, ErrAdminOnly
	}
	slot, err := req.ToDomain()
	if err != nil {
		return capacity.Slot{}, classifyInput(err)
	}
	if _, err := order.NewServiceType(slot.ServiceType); err != nil {
		return capacity.Slot{}, errs.Mark(err, ErrInvalidServiceParams)
	}

	var stored capacity.Slot
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Capacity().Upsert(ctx, slot); err != nil {
			if infra.IsKind(err, infra.KindCheckViolated) {
				return errs.Mark(err, ErrCapacityBelowBooked)
			}
			return err
		}
		var err error
		stored, err = tx.Capacity().Get(ctx, slot.PartnerID, slot.Window)
		return err
	})
	if err != nil {
		return capacity.Slot{}, err
	}

	c.logger.InfoContext(ctx, "Slot capacity updated",
		slog.String("partner_id", stored.PartnerID.String()),
		slog.Time("start", stored.Window.Start()),
		slog.Int("max_units", int(stored.MaxUnits)),
		slog.Int("reserved_units", int(stored.ReservedUnits)))
	return stored, nil
}

func isAdmin(actor shared.Actor) bool {
	return actor.UserID != nil && actor.Role.AtLeast(user.RoleAdmin)
}
