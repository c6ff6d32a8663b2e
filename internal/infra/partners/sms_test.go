//go:build unit

package partners_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra/partners"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "partner_secret"

var now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func signed(body string, at time.Time, key string) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set(partners.SignatureTimestampHeader, ts)
	h.Set(partners.SignatureHeader, partners.Sign([]byte(key), ts, []byte(body)))
	return h
}

func TestSMSDecoder_Decode(t *testing.T) {
	dec := partners.NewSMSDecoder(secret, 5*time.Minute, clock.NewMockClock(now))
	orderID := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")

	t.Run("quote with explicit order", func(t *testing.T) {
		body := `{"message_id":"SM100","from":" +14155550199 ","body":"QUOTE ` + orderID.String() + ` 18 2","sent_at":"2025-06-02T08:59:30Z"}`

		n, err := dec.Decode(context.Background(), []byte(body), signed(body, now, secret))
		require.NoError(t, err)

		msg, ok := n.(webhook.PartnerMessage)
		require.True(t, ok)
		assert.Equal(t, "sms_SM100", msg.EventID)
		assert.Equal(t, "partner.quote_submitted", msg.EventType)
		assert.Equal(t, "+14155550199", msg.From)
		assert.Equal(t, now.Add(-30*time.Second), msg.Created)
		require.NotNil(t, msg.Intent.OrderID)
		assert.Equal(t, orderID, *msg.Intent.OrderID)
		assert.Equal(t, int64(18), msg.Intent.WeightLbs)
		assert.Equal(t, int64(2), msg.Intent.DryCleanItems)
	})

	t.Run("follow up without order", func(t *testing.T) {
		body := `{"message_id":"SM101","from":"+14155550199","body":"picked up"}`

		n, err := dec.Decode(context.Background(), []byte(body), signed(body, now, secret))
		require.NoError(t, err)
		msg := n.(webhook.PartnerMessage)
		assert.Equal(t, webhook.IntentPickupConfirmed, msg.Intent.Kind)
		assert.Nil(t, msg.Intent.OrderID)
		assert.Equal(t, now, msg.Created)
	})

	cases := []struct {
		name   string
		body   string
		header func(body string) http.Header
		errIs  error
	}{
		{
			name:   "wrong secret",
			body:   `{"message_id":"SM1","from":"+1","body":"DONE"}`,
			header: func(b string) http.Header { return signed(b, now, "other") },
			errIs:  webhook.ErrInvalidSignature,
		},
		{
			name:   "stale timestamp",
			body:   `{"message_id":"SM1","from":"+1","body":"DONE"}`,
			header: func(b string) http.Header { return signed(b, now.Add(-6*time.Minute), secret) },
			errIs:  webhook.ErrInvalidSignature,
		},
		{
			name:   "missing headers",
			body:   `{"message_id":"SM1","from":"+1","body":"DONE"}`,
			header: func(string) http.Header { return http.Header{} },
			errIs:  webhook.ErrInvalidSignature,
		},
		{
			name:   "not json",
			body:   `message_id=SM1`,
			header: func(b string) http.Header { return signed(b, now, secret) },
			errIs:  webhook.ErrMalformedPayload,
		},
		{
			name:   "no sender",
			body:   `{"message_id":"SM1","body":"DONE"}`,
			header: func(b string) http.Header { return signed(b, now, secret) },
			errIs:  webhook.ErrMalformedPayload,
		},
		{
			name:   "unknown keyword",
			body:   `{"message_id":"SM1","from":"+1","body":"HELLO there"}`,
			header: func(b string) http.Header { return signed(b, now, secret) },
			errIs:  webhook.ErrUnsupportedEvent,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dec.Decode(context.Background(), []byte(tc.body), tc.header(tc.body))
			assert.True(t, errs.Is(err, tc.errIs), "got %v", err)
		})
	}
}
