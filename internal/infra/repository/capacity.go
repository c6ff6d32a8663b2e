package repository

import (
	"context"
	"log/slog"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// The capacity check and the increment are one statement, so concurrent
// bookings serialize on the row lock and never overshoot max_units.
const reserveSQL = `UPDATE capacity_slots
SET reserved_units = reserved_units + $4, updated_at = now()
WHERE partner_id = $1 AND window_start = $2 AND window_end = $3
  AND service_type = $5
  AND reserved_units + $4 <= max_units
RETURNING reserved_units`

const releaseSQL = `UPDATE capacity_slots
SET reserved_units = GREATEST(reserved_units - $4, 0), updated_at = now()
WHERE partner_id = $1 AND window_start = $2 AND window_end = $3`

const upsertSlotSQL = `INSERT INTO capacity_slots (partner_id, window_start, window_end, service_type, max_units)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (partner_id, window_start, window_end)
DO UPDATE SET max_units = EXCLUDED.max_units, service_type = EXCLUDED.service_type, updated_at = now()`

const getSlotSQL = `SELECT partner_id, service_type, window_start, window_end, max_units, reserved_units
FROM capacity_slots
WHERE partner_id = $1 AND window_start = $2 AND window_end = $3`

type CapacityRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewCapacityRepository(dbtx db.DBTX, logger *slog.Logger) *CapacityRepository {
	return &CapacityRepository{db: dbtx, logger: logger}
}

func (r *CapacityRepository) Reserve(ctx context.Context, partnerID uuid.UUID, serviceType string, window capacity.TimeWindow, units int32) (capacity.ReservationToken, error) {
	token, err := capacity.NewReservationToken(partnerID, window, units)
	if err != nil {
		return capacity.ReservationToken{}, err
	}

	var reserved int32
	err = r.db.QueryRow(ctx, reserveSQL, partnerID, window.Start(), window.End(), units, serviceType).Scan(&reserved)
	if err == nil {
		return token, nil
	}
	if !pgconv.IsNoRows(err) {
		return capacity.ReservationToken{}, infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to reserve capacity", err)
	}

	// Zero rows: the slot does not exist, serves another service type, or is full.
	slot, gerr := r.Get(ctx, partnerID, window)
	if gerr != nil {
		return capacity.ReservationToken{}, gerr
	}
	if slot.ServiceType != serviceType {
		return capacity.ReservationToken{}, infra.WrapRepoErr(r.logger, infra.KindNotFound, "slot serves "+slot.ServiceType, capacity.ErrWrongService)
	}
	return capacity.ReservationToken{}, infra.WrapRepoErr(r.logger, infra.KindCapacityExceeded, "slot is full", capacity.ErrCapacityExceeded)
}

// Release is clamped at zero, so releasing twice never drives the counter negative.
func (r *CapacityRepository) Release(ctx context.Context, token capacity.ReservationToken) error {
	_, err := r.db.Exec(ctx, releaseSQL, token.PartnerID, token.Window.Start(), token.Window.End(), token.Units)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to release capacity", err)
	}
	return nil
}

func (r *CapacityRepository) Upsert(ctx context.Context, slot capacity.Slot) error {
	_, err := r.db.Exec(ctx, upsertSlotSQL, slot.PartnerID, slot.Window.Start(), slot.Window.End(), slot.ServiceType, slot.MaxUnits)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to upsert capacity slot", err)
	}
	return nil
}

func (r *CapacityRepository) Get(ctx context.Context, partnerID uuid.UUID, window capacity.TimeWindow) (capacity.Slot, error) {
	var (
		slot       capacity.Slot
		start, end = window.Start(), window.End()
	)
	err := r.db.QueryRow(ctx, getSlotSQL, partnerID, start, end).
		Scan(&slot.PartnerID, &slot.ServiceType, &start, &end, &slot.MaxUnits, &slot.ReservedUnits)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return capacity.Slot{}, infra.WrapRepoErr(r.logger, infra.KindNotFound, "capacity slot not found", capacity.ErrSlotNotFound)
		}
		return capacity.Slot{}, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to load capacity slot", err)
	}
	slot.Window = window
	return slot, nil
}
