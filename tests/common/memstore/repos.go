//go:build unit || e2e

package memstore

import (
	"context"
	"sort"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/domain/policy"
	"freshfold/internal/domain/subscription"
	"freshfold/internal/domain/user"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

type memTx struct {
	st *state
}

func (t *memTx) Orders() shared.OrderRepository                   { return orderRepo{t.st} }
func (t *memTx) Capacity() shared.CapacityRepository              { return capacityRepo{t.st} }
func (t *memTx) Policies() shared.PolicyRepository                { return policyRepo{t.st} }
func (t *memTx) PaymentAttempts() shared.PaymentAttemptRepository { return attemptRepo{t.st} }
func (t *memTx) WebhookEvents() shared.WebhookEventRepository     { return eventRepo{t.st} }
func (t *memTx) Idempotency() shared.IdempotencyRepository        { return idempotencyRepo{t.st} }
func (t *memTx) Notifications() shared.NotificationRepository     { return notificationRepo{t.st} }
func (t *memTx) Subscriptions() shared.SubscriptionRepository     { return subscriptionRepo{t.st} }
func (t *memTx) Users() shared.UserRepository                     { return userRepo{t.st} }

type orderRepo struct{ st *state }

func (r orderRepo) Insert(_ context.Context, o *order.Order) error {
	if err := o.CheckInvariants(); err != nil {
		return err
	}
	if _, ok := r.st.orders[o.ID()]; ok {
		return infra.NewRepoErr(infra.KindDuplicateKey, "order already exists")
	}
	r.st.orders[o.ID()] = copyOrder(o)
	return nil
}

func (r orderRepo) Get(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, notFound("order not found")
	}
	return copyOrder(o), nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepo) Update(_ context.Context, o *order.Order, expected order.Status) error {
	if err := o.CheckInvariants(); err != nil {
		return err
	}
	stored, ok := r.st.orders[o.ID()]
	if !ok || stored.Status() != expected || stored.Version() != o.Version() {
		return shared.ErrConcurrentModification
	}
	o.IncrementVersion()
	r.st.orders[o.ID()] = copyOrder(o)
	return nil
}

type capacityRepo struct{ st *state }

func (r capacityRepo) Reserve(_ context.Context, partnerID uuid.UUID, serviceType string, w capacity.TimeWindow, units int32) (capacity.ReservationToken, error) {
	token, err := capacity.NewReservationToken(partnerID, w, units)
	if err != nil {
		return capacity.ReservationToken{}, err
	}
	k := keyOf(partnerID, w)
	slot, ok := r.st.slots[k]
	if !ok {
		return capacity.ReservationToken{}, infra.NewRepoErrWithCause(infra.KindNotFound, "slot not found", capacity.ErrSlotNotFound)
	}
	if slot.ServiceType != serviceType {
		return capacity.ReservationToken{}, infra.NewRepoErrWithCause(infra.KindNotFound, "slot serves "+slot.ServiceType, capacity.ErrWrongService)
	}
	if slot.ReservedUnits+units > slot.MaxUnits {
		return capacity.ReservationToken{}, infra.NewRepoErrWithCause(infra.KindCapacityExceeded, "slot is full", capacity.ErrCapacityExceeded)
	}
	slot.ReservedUnits += units
	r.st.slots[k] = slot
	return token, nil
}

func (r capacityRepo) Release(_ context.Context, token capacity.ReservationToken) error {
	k := keyOf(token.PartnerID, token.Window)
	slot, ok := r.st.slots[k]
	if !ok {
		return nil
	}
	slot.ReservedUnits = max(slot.ReservedUnits-token.Units, 0)
	r.st.slots[k] = slot
	return nil
}

func (r capacityRepo) Upsert(_ context.Context, slot capacity.Slot) error {
	k := keyOf(slot.PartnerID, slot.Window)
	if existing, ok := r.st.slots[k]; ok {
		slot.ReservedUnits = existing.ReservedUnits
		if slot.MaxUnits < slot.ReservedUnits {
			return infra.NewRepoErr(infra.KindCheckViolated, "max units below reserved units")
		}
	}
	r.st.slots[k] = slot
	return nil
}

func (r capacityRepo) Get(_ context.Context, partnerID uuid.UUID, w capacity.TimeWindow) (capacity.Slot, error) {
	slot, ok := r.st.slots[keyOf(partnerID, w)]
	if !ok {
		return capacity.Slot{}, notFound("slot not found")
	}
	return slot, nil
}

type policyRepo struct{ st *state }

func (r policyRepo) Active(_ context.Context, serviceType string) (*policy.CancellationPolicy, error) {
	for _, p := range r.st.policies {
		if p.ServiceType() == serviceType && p.Active() {
			return p, nil
		}
	}
	return nil, notFound("no active policy")
}

func (r policyRepo) ActiveForUpdate(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error) {
	return r.Active(ctx, serviceType)
}

func (r policyRepo) GetVersion(_ context.Context, id uuid.UUID, version int32) (*policy.CancellationPolicy, error) {
	for _, p := range r.st.policies {
		if p.ID() == id && p.Version() == version {
			return p, nil
		}
	}
	return nil, notFound("policy version not found")
}

func (r policyRepo) Insert(_ context.Context, p *policy.CancellationPolicy) error {
	for _, existing := range r.st.policies {
		if existing.ServiceType() == p.ServiceType() && existing.Version() == p.Version() {
			return infra.NewRepoErr(infra.KindDuplicateKey, "policy version exists")
		}
		if p.Active() && existing.Active() && existing.ServiceType() == p.ServiceType() {
			return infra.NewRepoErr(infra.KindDuplicateKey, "another active policy exists")
		}
	}
	r.st.policies = append(r.st.policies, p)
	return nil
}

func (r policyRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	for i, p := range r.st.policies {
		if p.ID() == id && p.Active() {
			r.st.policies[i] = copyPolicy(p, false)
			return nil
		}
	}
	return infra.NewRepoErr(infra.KindConflict, "policy is not active")
}

type attemptRepo struct{ st *state }

func (r attemptRepo) Latest(_ context.Context, orderID uuid.UUID, kind payment.Kind) (*payment.Attempt, error) {
	var latest *payment.Attempt
	for _, a := range r.st.attempts {
		if a.OrderID != orderID || a.Kind != kind {
			continue
		}
		if latest == nil || a.Epoch > latest.Epoch {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyAttempt(latest), nil
}

func (r attemptRepo) Insert(_ context.Context, a *payment.Attempt) error {
	for _, existing := range r.st.attempts {
		if existing.IdempotencyKey == a.IdempotencyKey {
			return infra.NewRepoErr(infra.KindDuplicateKey, "attempt key exists")
		}
	}
	r.st.attempts[a.ID] = copyAttempt(a)
	return nil
}

func (r attemptRepo) Update(_ context.Context, a *payment.Attempt) error {
	if _, ok := r.st.attempts[a.ID]; !ok {
		return notFound("attempt not found")
	}
	r.st.attempts[a.ID] = copyAttempt(a)
	return nil
}

func (r attemptRepo) FindByContinuation(_ context.Context, ref string) (*payment.Attempt, error) {
	for _, a := range r.st.attempts {
		if a.ContinuationRef != nil && *a.ContinuationRef == ref {
			return copyAttempt(a), nil
		}
	}
	return nil, notFound("continuation not found")
}

func (r attemptRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]*payment.Attempt, error) {
	var due []*payment.Attempt
	for _, a := range r.st.attempts {
		if a.Status == payment.StatusScheduled && a.NextAttemptAt != nil && !a.NextAttemptAt.After(now) {
			due = append(due, copyAttempt(a))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(*due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r attemptRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*payment.Attempt, error) {
	var out []*payment.Attempt
	for _, a := range r.st.attempts {
		if a.OrderID == orderID {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type eventRepo struct{ st *state }

func (r eventRepo) Claim(_ context.Context, e *webhook.Event, staleAfter time.Duration) (bool, error) {
	existing, ok := r.st.events[e.ID]
	if !ok {
		e.Status = webhook.StatusPending
		e.Attempts = 1
		c := *e
		r.st.events[e.ID] = &c
		return true, nil
	}
	reclaim := existing.Status == webhook.StatusFailure ||
		(existing.Status == webhook.StatusPending && existing.ReceivedAt.Before(e.ReceivedAt.Add(-staleAfter)))
	if !reclaim {
		return false, nil
	}
	existing.Status = webhook.StatusPending
	existing.Attempts++
	existing.ReceivedAt = e.ReceivedAt
	existing.Error = ""
	e.Status = existing.Status
	e.Attempts = existing.Attempts
	return true, nil
}

func (r eventRepo) MarkProcessed(_ context.Context, eventID string, status webhook.Status, errMsg string, latencyMs int64, at time.Time) error {
	e, ok := r.st.events[eventID]
	if !ok {
		return notFound("event not found")
	}
	e.Status = status
	e.Error = errMsg
	e.LatencyMs = latencyMs
	e.ProcessedAt = &at
	return nil
}

type idempotencyRepo struct{ st *state }

func (r idempotencyRepo) TryInsert(_ context.Context, rec shared.IdempotencyRecord) (bool, error) {
	k := idemKey{key: rec.Key, scope: rec.Scope}
	if _, ok := r.st.idempotency[k]; ok {
		return false, nil
	}
	r.st.idempotency[k] = rec
	return true, nil
}

func (r idempotencyRepo) Get(_ context.Context, key uuid.UUID, scope string) (*shared.IdempotencyRecord, error) {
	rec, ok := r.st.idempotency[idemKey{key: key, scope: scope}]
	if !ok {
		return nil, notFound("idempotency key not found")
	}
	return &rec, nil
}

func (r idempotencyRepo) Complete(_ context.Context, key uuid.UUID, scope string, _ string, resultOrderID uuid.UUID) error {
	k := idemKey{key: key, scope: scope}
	rec, ok := r.st.idempotency[k]
	if !ok {
		return notFound("idempotency key not found")
	}
	rec.Status = shared.IdempotencyCompleted
	rec.ResultOrderID = &resultOrderID
	r.st.idempotency[k] = rec
	return nil
}

func (r idempotencyRepo) ReclaimExpired(_ context.Context, rec shared.IdempotencyRecord, now time.Time) (bool, error) {
	k := idemKey{key: rec.Key, scope: rec.Scope}
	existing, ok := r.st.idempotency[k]
	if !ok || !existing.ExpiresAt.Before(now) {
		return false, nil
	}
	r.st.idempotency[k] = rec
	return true, nil
}

type notificationRepo struct{ st *state }

func (r notificationRepo) CreateJob(_ context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	r.st.jobs = append(r.st.jobs, Job{Kind: kind, Topic: topic, Payload: payload, RunAt: runAt})
	return nil
}

type subscriptionRepo struct{ st *state }

func (r subscriptionRepo) Upsert(_ context.Context, s subscription.Subscription) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}
	if existing, ok := r.st.subscriptions[s.ID]; ok && !existing.Newer(s.LastEventAt) {
		return false, nil
	}
	r.st.subscriptions[s.ID] = s
	return true, nil
}

type userRepo struct{ st *state }

func (r userRepo) UpdateLastLogin(_ context.Context, userID uuid.UUID, _ time.Time) error {
	if _, ok := r.st.users[userID]; !ok {
		return notFound("user not found")
	}
	return nil
}

func (r userRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.st.users {
		if existing.Email().Value() == u.Email().Value() {
			return infra.NewRepoErr(infra.KindDuplicateKey, "email exists")
		}
	}
	r.st.users[u.ID()] = u
	return nil
}

type reads struct{ store *Store }

func (r *reads) OrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return orderRepo{r.store.snapshot()}.Get(ctx, id)
}

func (r *reads) ActivePolicy(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error) {
	return policyRepo{r.store.snapshot()}.Active(ctx, serviceType)
}

func (r *reads) AttemptByContinuation(ctx context.Context, ref string) (*payment.Attempt, error) {
	return attemptRepo{r.store.snapshot()}.FindByContinuation(ctx, ref)
}
