package policy

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidNoticeHours = errors.New("notice hours must be between 0 and 720")
	ErrInvalidFeePercent  = errors.New("fee percent must be between 0 and 100")
	ErrNoActivePolicy     = errors.New("no active policy for service type")
)

// CancellationPolicy is immutable once published. A change is a new version.
type CancellationPolicy struct {
	id          uuid.UUID
	serviceType string
	version     int32
	noticeHours int32
	feePercent  int32
	active      bool
	createdBy   *uuid.UUID
	createdAt   time.Time
}

type Terms struct {
	NoticeHours int32
	FeePercent  int32
}

func (t Terms) Validate() error {
	if t.NoticeHours < 0 || t.NoticeHours > 720 {
		return ErrInvalidNoticeHours
	}
	if t.FeePercent < 0 || t.FeePercent > 100 {
		return ErrInvalidFeePercent
	}
	return nil
}

// NewVersion builds the successor of the currently active version (nil when none exists).
func NewVersion(serviceType string, current *CancellationPolicy, terms Terms, createdBy *uuid.UUID, now time.Time) (*CancellationPolicy, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	version := int32(1)
	if current != nil {
		version = current.version + 1
	}
	return &CancellationPolicy{
		id:          uuid.New(),
		serviceType: serviceType,
		version:     version,
		noticeHours: terms.NoticeHours,
		feePercent:  terms.FeePercent,
		active:      true,
		createdBy:   createdBy,
		createdAt:   now,
	}, nil
}

func Reconstruct(id uuid.UUID, serviceType string, version int32, terms Terms, active bool, createdBy *uuid.UUID, createdAt time.Time) *CancellationPolicy {
	return &CancellationPolicy{
		id:          id,
		serviceType: serviceType,
		version:     version,
		noticeHours: terms.NoticeHours,
		feePercent:  terms.FeePercent,
		active:      active,
		createdBy:   createdBy,
		createdAt:   createdAt,
	}
}

func (p *CancellationPolicy) ID() uuid.UUID         { return p.id }
func (p *CancellationPolicy) ServiceType() string   { return p.serviceType }
func (p *CancellationPolicy) Version() int32        { return p.version }
func (p *CancellationPolicy) Active() bool          { return p.active }
func (p *CancellationPolicy) CreatedBy() *uuid.UUID { return p.createdBy }
func (p *CancellationPolicy) CreatedAt() time.Time  { return p.createdAt }
func (p *CancellationPolicy) Terms() Terms {
	return Terms{NoticeHours: p.noticeHours, FeePercent: p.feePercent}
}

// Snapshot is the (id, version, terms) copy an order keeps for its lifetime.
type Snapshot struct {
	ID      uuid.UUID
	Version int32
	Terms   Terms
}

func (p *CancellationPolicy) Snapshot() Snapshot {
	return Snapshot{ID: p.id, Version: p.version, Terms: p.Terms()}
}

// CancellationFee returns the fee owed when canceling at now for a slot starting at slotStart.
// Rounds half up.
func (s Snapshot) CancellationFee(total int64, slotStart, now time.Time) int64 {
	if s.Terms.FeePercent == 0 || total <= 0 {
		return 0
	}
	notice := time.Duration(s.Terms.NoticeHours) * time.Hour
	if slotStart.Sub(now) >= notice {
		return 0
	}
	return (total*int64(s.Terms.FeePercent) + 50) / 100
}
