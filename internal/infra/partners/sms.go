// Package partners decodes the SMS relay deliveries sent by service partners.
package partners

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
)

const (
	SignatureHeader          = "X-Signature"
	SignatureTimestampHeader = "X-Signature-Timestamp"
)

type smsMessage struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// SMSDecoder verifies the relay's HMAC over "<timestamp>.<body>" and parses
// the message text into a partner intent.
type SMSDecoder struct {
	secret    []byte
	tolerance time.Duration
	clock     clock.Clock
}

func NewSMSDecoder(secret string, tolerance time.Duration, clk clock.Clock) *SMSDecoder {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &SMSDecoder{secret: []byte(secret), tolerance: tolerance, clock: clk}
}

func (d *SMSDecoder) Source() webhook.Source { return webhook.SourcePartner }

func (d *SMSDecoder) Decode(_ context.Context, payload []byte, header http.Header) (webhook.Notification, error) {
	if err := d.verify(payload, header); err != nil {
		return nil, err
	}

	var m smsMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "failed to decode partner message"), webhook.ErrMalformedPayload)
	}
	m.From = strings.TrimSpace(m.From)
	if m.MessageID == "" || m.From == "" {
		return nil, errs.Mark(errs.New("partner message without id or sender"), webhook.ErrMalformedPayload)
	}

	intent, err := webhook.ParsePartnerIntent(m.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "message %s", m.MessageID)
	}

	created := m.SentAt.UTC()
	if m.SentAt.IsZero() {
		created = d.clock.Now()
	}
	return webhook.PartnerMessage{
		Meta: webhook.Meta{
			EventID:   "sms_" + m.MessageID,
			EventType: "partner." + string(intent.Kind),
			Source:    webhook.SourcePartner,
			Created:   created,
		},
		From:   m.From,
		Intent: intent,
	}, nil
}

func (d *SMSDecoder) verify(payload []byte, header http.Header) error {
	ts := header.Get(SignatureTimestampHeader)
	sig := header.Get(SignatureHeader)
	if ts == "" || sig == "" {
		return errs.Mark(errs.New("partner signature headers missing"), webhook.ErrInvalidSignature)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errs.Mark(errs.Wrap(err, "invalid partner signature timestamp"), webhook.ErrInvalidSignature)
	}
	if age := d.clock.Now().Sub(time.Unix(unix, 0)); age > d.tolerance || age < -d.tolerance {
		return errs.Mark(errs.Newf("partner signature is %s old", age), webhook.ErrInvalidSignature)
	}

	want := Sign(d.secret, ts, payload)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(sig)))) {
		return errs.Mark(errs.New("partner signature mismatch"), webhook.ErrInvalidSignature)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 the relay sends in X-Signature.
func Sign(secret []byte, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
