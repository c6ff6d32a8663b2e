package repository

import (
	"context"
	"log/slog"

	"freshfold/internal/domain/order"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/infra/repository/converter"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

const insertOrderSQL = `INSERT INTO orders (` + converter.OrderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
	$41, $42, $43)`

// Identity, service type, address and policy snapshot are never part of an update.
// The slot columns change only through reschedule.
const updateOrderSQL = `UPDATE orders SET
	status = $3, partner_id = $4, slot_start = $5, slot_end = $6,
	delivery_slot_start = $7, delivery_slot_end = $8,
	subtotal = $9, tax = $10, delivery_fee = $11, total = $12,
	paid_amount = $13, refunded_amount = $14,
	payment_provider = $15, payment_customer_id = $16, payment_method_id = $17,
	authorization_id = $18, authorized_amount = $19, charge_id = $20, receipt_url = $21,
	cancel_reason = $22, manual_payment_required = $23, reauthorization_required = $24,
	updated_at = $25, paid_at = $26, refunded_at = $27, canceled_at = $28, cancellation_fee = $29,
	version = version + 1
WHERE id = $1 AND status = $30 AND version = $2`

type OrderRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewOrderRepository(dbtx db.DBTX, logger *slog.Logger) *OrderRepository {
	return &OrderRepository{db: dbtx, logger: logger}
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	if err := o.CheckInvariants(); err != nil {
		return err
	}
	row := converter.OrderToRow(o)
	_, err := r.db.Exec(ctx, insertOrderSQL,
		row.ID, row.ServiceType, row.Status, row.CustomerUserID, row.GuestName, row.GuestEmail, row.GuestPhone,
		row.PartnerID, row.SlotStart, row.SlotEnd, row.DeliverySlotStart, row.DeliverySlotEnd,
		row.AddressLine1, row.AddressLine2, row.AddressCity, row.AddressPostalCode, row.ServiceParams,
		row.Subtotal, row.Tax, row.DeliveryFee, row.Total, row.PaidAmount, row.RefundedAmount,
		row.PolicyID, row.PolicyVersion, row.PaymentMode, row.PaymentProvider, row.PaymentCustomerID, row.PaymentMethodID,
		row.AuthorizationID, row.AuthorizedAmount, row.ChargeID, row.ReceiptURL, row.CancelReason, row.CancellationFee,
		row.ManualPaymentRequired, row.ReauthorizationRequired,
		row.CreatedAt, row.UpdatedAt, row.PaidAt, row.RefundedAt, row.CanceledAt, row.Version,
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to insert order", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, `SELECT `+converter.OrderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, `SELECT `+converter.OrderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) get(ctx context.Context, query string, id uuid.UUID) (*order.Order, error) {
	var row converter.OrderRow
	if err := r.db.QueryRow(ctx, query, id).Scan(row.ScanTargets()...); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "order not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to load order", err)
	}
	o, err := converter.OrderToDomain(row)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "stored order is unreadable", err)
	}
	return o, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *order.Order, expected order.Status) error {
	if err := o.CheckInvariants(); err != nil {
		return err
	}
	row := converter.OrderToRow(o)
	tag, err := r.db.Exec(ctx, updateOrderSQL,
		row.ID, row.Version,
		row.Status, row.PartnerID, row.SlotStart, row.SlotEnd,
		row.DeliverySlotStart, row.DeliverySlotEnd,
		row.Subtotal, row.Tax, row.DeliveryFee, row.Total,
		row.PaidAmount, row.RefundedAmount,
		row.PaymentProvider, row.PaymentCustomerID, row.PaymentMethodID,
		row.AuthorizationID, row.AuthorizedAmount, row.ChargeID, row.ReceiptURL,
		row.CancelReason, row.ManualPaymentRequired, row.ReauthorizationRequired,
		row.UpdatedAt, row.PaidAt, row.RefundedAt, row.CanceledAt, row.CancellationFee,
		expected.String(),
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to update order", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug("guarded order update matched no row",
			slog.String("order_id", o.ID().String()),
			slog.String("expected_status", expected.String()),
			slog.Int("version", int(o.Version())))
		return shared.ErrConcurrentModification
	}
	o.IncrementVersion()
	return nil
}
