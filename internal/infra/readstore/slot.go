package readstore

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/queries"

	"github.com/google/uuid"
)

type SlotReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewSlotReadStore(dbtx db.DBTX, logger *slog.Logger) *SlotReadStore {
	return &SlotReadStore{db: dbtx, logger: logger}
}

func (r *SlotReadStore) ListBetween(ctx context.Context, partnerID *uuid.UUID, serviceType string, from, to time.Time) ([]*queries.SlotView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT partner_id, service_type, window_start, window_end, max_units, reserved_units
		FROM capacity_slots
		WHERE service_type = $1 AND window_start >= $2 AND window_start < $3
		  AND ($4::uuid IS NULL OR partner_id = $4)
		ORDER BY window_start, partner_id`,
		serviceType, from, to, pgconv.UUIDPtrToPgtype(partnerID),
	)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list capacity slots", err)
	}
	defer rows.Close()

	var out []*queries.SlotView
	for rows.Next() {
		var s queries.SlotView
		if err := rows.Scan(&s.PartnerID, &s.ServiceType, &s.WindowStart, &s.WindowEnd, &s.MaxUnits, &s.ReservedUnits); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan capacity slot", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to iterate capacity slots", err)
	}
	return out, nil
}
