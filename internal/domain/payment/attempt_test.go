//go:build unit

package payment_test

import (
	"testing"
	"time"

	"freshfold/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderID = uuid.MustParse("3f0c2b8e-6f57-4b8e-9a59-0c7f3c1d2e4a")

func TestIdempotencyKey(t *testing.T) {
	key := payment.IdempotencyKey(orderID, payment.KindCharge, 2)
	assert.Equal(t, "3f0c2b8e-6f57-4b8e-9a59-0c7f3c1d2e4a:charge:2", key)
}

func TestNextEpoch(t *testing.T) {
	tests := []struct {
		name      string
		latest    *payment.Attempt
		wantEpoch int32
		wantReuse bool
	}{
		{name: "first attempt", latest: nil, wantEpoch: 1},
		{name: "in flight keeps epoch", latest: &payment.Attempt{Epoch: 2, Status: payment.StatusInFlight}, wantEpoch: 2, wantReuse: true},
		{name: "scheduled keeps epoch", latest: &payment.Attempt{Epoch: 1, Status: payment.StatusScheduled}, wantEpoch: 1, wantReuse: true},
		{name: "requires action keeps epoch", latest: &payment.Attempt{Epoch: 3, Status: payment.StatusRequiresAction}, wantEpoch: 3, wantReuse: true},
		{name: "failed starts new epoch", latest: &payment.Attempt{Epoch: 1, Status: payment.StatusFailed}, wantEpoch: 2},
		{name: "succeeded starts new epoch", latest: &payment.Attempt{Epoch: 4, Status: payment.StatusSucceeded}, wantEpoch: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epoch, reuse := payment.NextEpoch(tt.latest)
			assert.Equal(t, tt.wantEpoch, epoch)
			assert.Equal(t, tt.wantReuse, reuse)
		})
	}
}

func TestNewAttempt(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	a, err := payment.NewAttempt(orderID, payment.KindCapture, 1, 12000, now)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusInFlight, a.Status)
	assert.Equal(t, payment.IdempotencyKey(orderID, payment.KindCapture, 1), a.IdempotencyKey)
	assert.Len(t, a.ID, 26)

	_, err = payment.NewAttempt(orderID, payment.KindCharge, 1, 0, now)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	_, err = payment.NewAttempt(orderID, payment.KindVoid, 1, 0, now)
	assert.NoError(t, err)

	_, err = payment.NewAttempt(orderID, payment.Kind("settle"), 1, 100, now)
	assert.ErrorIs(t, err, payment.ErrInvalidKind)
}

func TestAttemptSuspendAndResume(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	a, err := payment.NewAttempt(orderID, payment.KindAuthorize, 1, 15000, now)
	require.NoError(t, err)

	ref := a.Suspend("pi_123", "pi_123_secret", now)
	require.NotNil(t, a.ContinuationRef)
	assert.Equal(t, ref, *a.ContinuationRef)
	assert.NoError(t, a.Resumable(orderID))
	assert.ErrorIs(t, a.Resumable(uuid.New()), payment.ErrNotSuspended)

	a.Succeed("", now.Add(time.Minute))
	assert.Nil(t, a.ContinuationRef)
	assert.Equal(t, "pi_123", a.ProviderRef)
	assert.ErrorIs(t, a.Resumable(orderID), payment.ErrNotSuspended)
}

func TestBackoff(t *testing.T) {
	base, max := time.Minute, 10*time.Minute
	assert.Equal(t, time.Minute, payment.Backoff(1, base, max))
	assert.Equal(t, 2*time.Minute, payment.Backoff(2, base, max))
	assert.Equal(t, 8*time.Minute, payment.Backoff(4, base, max))
	assert.Equal(t, max, payment.Backoff(5, base, max))
	assert.Equal(t, max, payment.Backoff(30, base, max))
	assert.Equal(t, time.Minute, payment.Backoff(0, base, max))
	assert.Equal(t, 6*time.Minute, payment.Backoff(3, 90*time.Second, max))
	assert.Equal(t, max, payment.Backoff(1, time.Hour, max), "base above the cap")
}
