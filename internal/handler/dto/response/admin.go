package response

import (
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/policy"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type PolicyResponse struct {
	ID          uuid.UUID  `json:"id"`
	ServiceType string     `json:"service_type"`
	Version     int32      `json:"version"`
	NoticeHours int32      `json:"notice_hours"`
	FeePercent  int32      `json:"fee_percent"`
	Active      bool       `json:"active"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func FromPolicy(p *policy.CancellationPolicy) *PolicyResponse {
	terms := p.Terms()
	return &PolicyResponse{
		ID:          p.ID(),
		ServiceType: p.ServiceType(),
		Version:     p.Version(),
		NoticeHours: terms.NoticeHours,
		FeePercent:  terms.FeePercent,
		Active:      p.Active(),
		CreatedBy:   p.CreatedBy(),
		CreatedAt:   p.CreatedAt(),
	}
}

func FromPolicyView(v *queries.PolicyView) (*PolicyResponse, error) {
	res := &PolicyResponse{}
	if err := copier.Copy(res, v); err != nil {
		return nil, errs.Wrap(err, "failed to build policy response")
	}
	return res, nil
}

type SlotResponse struct {
	PartnerID     uuid.UUID `json:"partner_id"`
	ServiceType   string    `json:"service_type"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	MaxUnits      int32     `json:"max_units"`
	ReservedUnits int32     `json:"reserved_units"`
	Available     int32     `json:"available"`
}

func FromSlot(s capacity.Slot) *SlotResponse {
	return &SlotResponse{
		PartnerID:     s.PartnerID,
		ServiceType:   s.ServiceType,
		WindowStart:   s.Window.Start(),
		WindowEnd:     s.Window.End(),
		MaxUnits:      s.MaxUnits,
		ReservedUnits: s.ReservedUnits,
		Available:     s.Available(),
	}
}

func FromSlotViews(views []*queries.SlotView) ([]*SlotResponse, error) {
	res := make([]*SlotResponse, 0, len(views))
	if err := copier.Copy(&res, &views); err != nil {
		return nil, errs.Wrap(err, "failed to build slot response")
	}
	return res, nil
}

type WebhookEventResponse struct {
	EventID     string     `json:"event_id"`
	Source      string     `json:"source"`
	EventType   string     `json:"event_type"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Attempts    int32      `json:"attempts"`
	LatencyMs   *int64     `json:"latency_ms,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func FromWebhookEventViews(views []*queries.WebhookEventView) ([]*WebhookEventResponse, error) {
	res := make([]*WebhookEventResponse, 0, len(views))
	if err := copier.Copy(&res, &views); err != nil {
		return nil, errs.Wrap(err, "failed to build webhook event response")
	}
	return res, nil
}

type WebhookAckResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
	Outcome  string `json:"outcome"`
}
