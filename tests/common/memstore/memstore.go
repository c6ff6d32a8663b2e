//go:build unit || e2e

// Package memstore is an in-memory UnitOfWork. Each Within call works on a copy
// of the committed state and swaps it in only when fn returns nil.
package memstore

import (
	"context"
	"sort"
	"sync"
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

type Job struct {
	Kind    string
	Topic   string
	Payload []byte
	RunAt   time.Time
}

type slotKey struct {
	partner    uuid.UUID
	start, end int64
}

func keyOf(partnerID uuid.UUID, w capacity.TimeWindow) slotKey {
	return slotKey{partner: partnerID, start: w.Start().UnixMicro(), end: w.End().UnixMicro()}
}

type idemKey struct {
	key   uuid.UUID
	scope string
}

type state struct {
	orders        map[uuid.UUID]*order.Order
	slots         map[slotKey]capacity.Slot
	policies      []*policy.CancellationPolicy
	attempts      map[string]*payment.Attempt
	events        map[string]*webhook.Event
	idempotency   map[idemKey]shared.IdempotencyRecord
	jobs          []Job
	subscriptions map[string]subscription.Subscription
	users         map[uuid.UUID]*user.User
}

func newState() *state {
	return &state{
		orders:        map[uuid.UUID]*order.Order{},
		slots:         map[slotKey]capacity.Slot{},
		attempts:      map[string]*payment.Attempt{},
		events:        map[string]*webhook.Event{},
		idempotency:   map[idemKey]shared.IdempotencyRecord{},
		subscriptions: map[string]subscription.Subscription{},
		users:         map[uuid.UUID]*user.User{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for _, p := range s.policies {
		c.policies = append(c.policies, copyPolicy(p, p.Active()))
	}
	for k, v := range s.attempts {
		c.attempts[k] = copyAttempt(v)
	}
	for k, v := range s.events {
		e := *v
		c.events[k] = &e
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	c.jobs = append(c.jobs, s.jobs...)
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

func copyOrder(o *order.Order) *order.Order {
	c := *o
	return &c
}

func copyAttempt(a *payment.Attempt) *payment.Attempt {
	c := *a
	return &c
}

func copyPolicy(p *policy.CancellationPolicy, active bool) *policy.CancellationPolicy {
	return policy.Reconstruct(p.ID(), p.ServiceType(), p.Version(), p.Terms(), active, p.CreatedBy(), p.CreatedAt())
}

// Store implements shared.UnitOfWork.
type Store struct {
	mu        sync.Mutex
	committed *state
	// Commits counts successful Within calls.
	Commits int
}

func New() *Store {
	return &Store{committed: newState()}
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.committed.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.committed = work
	s.Commits++
	return nil
}

func (s *Store) CommandReads() shared.CommandReads {
	return &reads{store: s}
}

func (s *Store) snapshot() *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.clone()
}

// Seeding and inspection helpers used by tests.

func (s *Store) PutOrder(o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.orders[o.ID()] = copyOrder(o)
}

func (s *Store) Order(id uuid.UUID) *order.Order {
	if o, ok := s.snapshot().orders[id]; ok {
		return o
	}
	return nil
}

func (s *Store) PutSlot(slot capacity.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.slots[keyOf(slot.PartnerID, slot.Window)] = slot
}

func (s *Store) Slot(partnerID uuid.UUID, w capacity.TimeWindow) (capacity.Slot, bool) {
	slot, ok := s.snapshot().slots[keyOf(partnerID, w)]
	return slot, ok
}

func (s *Store) PutPolicy(p *policy.CancellationPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.policies = append(s.committed.policies, p)
}

func (s *Store) PutAttempt(a *payment.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.attempts[a.ID] = copyAttempt(a)
}

// Attempts returns the order's attempts ordered by kind then epoch.
func (s *Store) Attempts(orderID uuid.UUID) []*payment.Attempt {
	var out []*payment.Attempt
	for _, a := range s.snapshot().attempts {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Epoch < out[j].Epoch
	})
	return out
}

func (s *Store) Event(id string) *webhook.Event {
	return s.snapshot().events[id]
}

func (s *Store) Jobs() []Job {
	return s.snapshot().jobs
}

func (s *Store) Subscription(id string) (subscription.Subscription, bool) {
	sub, ok := s.snapshot().subscriptions[id]
	return sub, ok
}

func (s *Store) PutUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.users[u.ID()] = u
}

func (s *Store) User(id uuid.UUID) *user.User {
	return s.snapshot().users[id]
}

func (s *Store) Idempotency(key uuid.UUID, scope string) (shared.IdempotencyRecord, bool) {
	rec, ok := s.snapshot().idempotency[idemKey{key: key, scope: scope}]
	return rec, ok
}

func notFound(msg string) error {
	return infra.NewRepoErr(infra.KindNotFound, msg)
}
