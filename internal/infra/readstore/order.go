package readstore

import (
	"context"
	"log/slog"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/infra/repository/converter"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewOrderReadStore(dbtx db.DBTX, logger *slog.Logger) *OrderReadStore {
	return &OrderReadStore{db: dbtx, logger: logger}
}

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	var row converter.OrderRow
	err := r.db.QueryRow(ctx, `SELECT `+converter.OrderColumns+` FROM orders WHERE id = $1`, id).Scan(row.ScanTargets()...)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "order not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to find order by ID", err)
	}
	view := toOrderView(row)

	attempts, err := r.attempts(ctx, id)
	if err != nil {
		return nil, err
	}
	view.PaymentAttempts = attempts
	return view, nil
}

// List pages by (created_at, id) descending.
func (r *OrderReadStore) List(ctx context.Context, p queries.OrderListParams) ([]*queries.OrderView, error) {
	var afterAt pgtype.Timestamptz
	if p.AfterCreatedAt != nil {
		afterAt = pgconv.TimeToPgtype(*p.AfterCreatedAt)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+converter.OrderColumns+` FROM orders
		WHERE ($1::uuid IS NULL OR customer_user_id = $1)
		  AND ($2::text = '' OR status = $2)
		  AND ($3::timestamptz IS NULL OR (created_at, id) < ($3, $4::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $5`,
		pgconv.UUIDPtrToPgtype(p.CustomerUserID), p.Status, afterAt, pgconv.UUIDPtrToPgtype(p.AfterID), p.Limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list orders", err)
	}
	defer rows.Close()

	var out []*queries.OrderView
	for rows.Next() {
		var row converter.OrderRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan order", err)
		}
		out = append(out, toOrderView(row))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to iterate orders", err)
	}
	return out, nil
}

func (r *OrderReadStore) attempts(ctx context.Context, orderID uuid.UUID) ([]queries.PaymentAttemptView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+converter.AttemptColumns+` FROM payment_attempts WHERE order_id = $1 ORDER BY created_at, epoch`,
		orderID,
	)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list payment attempts", err)
	}
	defer rows.Close()

	out := []queries.PaymentAttemptView{}
	for rows.Next() {
		var row converter.AttemptRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan payment attempt", err)
		}
		out = append(out, queries.PaymentAttemptView{
			ID:             row.ID,
			Kind:           row.Kind,
			Epoch:          row.Epoch,
			Amount:         row.Amount,
			Status:         row.Status,
			FailureCode:    row.FailureCode,
			ReleasedAmount: row.ReleasedAmount,
			Tries:          row.Tries,
			NextAttemptAt:  pgconv.TimePtrFromPgtype(row.NextAttemptAt),
			CreatedAt:      row.CreatedAt.Time,
			UpdatedAt:      row.UpdatedAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to iterate payment attempts", err)
	}
	return out, nil
}

func toOrderView(row converter.OrderRow) *queries.OrderView {
	v := &queries.OrderView{
		ID:                      row.ID,
		ServiceType:             row.ServiceType,
		Status:                  row.Status,
		CustomerUserID:          pgconv.UUIDPtrFromPgtype(row.CustomerUserID),
		GuestName:               pgconv.StringPtrFromPgtype(row.GuestName),
		GuestEmail:              pgconv.StringPtrFromPgtype(row.GuestEmail),
		GuestPhone:              pgconv.StringPtrFromPgtype(row.GuestPhone),
		PartnerID:               row.PartnerID,
		SlotStart:               row.SlotStart.Time,
		SlotEnd:                 row.SlotEnd.Time,
		DeliverySlotStart:       pgconv.TimePtrFromPgtype(row.DeliverySlotStart),
		DeliverySlotEnd:         pgconv.TimePtrFromPgtype(row.DeliverySlotEnd),
		AddressLine1:            row.AddressLine1,
		AddressLine2:            row.AddressLine2,
		AddressCity:             row.AddressCity,
		AddressPostalCode:       row.AddressPostalCode,
		ServiceParams:           row.ServiceParams,
		Subtotal:                row.Subtotal,
		Tax:                     row.Tax,
		DeliveryFee:             row.DeliveryFee,
		Total:                   row.Total,
		PaidAmount:              row.PaidAmount,
		RefundedAmount:          row.RefundedAmount,
		AuthorizedAmount:        row.AuthorizedAmount,
		PolicyID:                pgconv.UUIDPtrFromPgtype(row.PolicyID),
		PolicyVersion:           pgconv.Int32PtrFromPgtype(row.PolicyVersion),
		PaymentMode:             row.PaymentMode,
		PaymentProvider:         row.PaymentProvider,
		ChargeID:                row.ChargeID,
		ReceiptURL:              row.ReceiptURL,
		CancelReason:            row.CancelReason,
		CancellationFee:         row.CancellationFee,
		ManualPaymentRequired:   row.ManualPaymentRequired,
		ReauthorizationRequired: row.ReauthorizationRequired,
		CreatedAt:               row.CreatedAt.Time,
		UpdatedAt:               row.UpdatedAt.Time,
		PaidAt:                  pgconv.TimePtrFromPgtype(row.PaidAt),
		RefundedAt:              pgconv.TimePtrFromPgtype(row.RefundedAt),
		CanceledAt:              pgconv.TimePtrFromPgtype(row.CanceledAt),
		Version:                 row.Version,
		PaymentAttempts:         []queries.PaymentAttemptView{},
	}
	return v
}
