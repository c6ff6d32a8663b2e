package subscription

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidSubscription = errors.New("subscription id and customer id are required")

// Subscription is the local ledger row of a processor-managed recurring plan.
type Subscription struct {
	ID               string
	Provider         string
	CustomerID       string
	UserID           *uuid.UUID
	Status           string
	PlanID           string
	CurrentPeriodEnd *time.Time
	CanceledAt       *time.Time
	LastEventAt      time.Time
}

func (s Subscription) Validate() error {
	if s.ID == "" || s.CustomerID == "" {
		return ErrInvalidSubscription
	}
	return nil
}

// Newer reports whether an event created at t may overwrite this row.
func (s Subscription) Newer(t time.Time) bool {
	return t.After(s.LastEventAt)
}
