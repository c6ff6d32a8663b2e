package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type IntentKind string

const (
	IntentPickupConfirmed IntentKind = "pickup_confirmed"
	IntentDelivered       IntentKind = "delivered"
	IntentQuoteSubmitted  IntentKind = "quote_submitted"
	IntentStatusUpdate    IntentKind = "status_update"
)

// PartnerIntent is the parsed form of a partner text message such as
// "PICKED UP <order-id>", "QUOTE <order-id> 18 2" or "STATUS out_for_delivery".
// OrderID is nil when the message relies on the previous message's order.
type PartnerIntent struct {
	Kind          IntentKind
	OrderID       *uuid.UUID
	Status        string
	WeightLbs     int64
	DryCleanItems int64
}

func ParsePartnerIntent(body string) (PartnerIntent, error) {
	fields := strings.Fields(strings.TrimSpace(body))
	if len(fields) == 0 {
		return PartnerIntent{}, fmt.Errorf("%w: empty message", ErrMalformedPayload)
	}

	keyword := strings.ToUpper(fields[0])
	rest := fields[1:]
	if keyword == "PICKED" && len(rest) > 0 && strings.EqualFold(rest[0], "UP") {
		keyword = "PICKUP"
		rest = rest[1:]
	}

	var intent PartnerIntent
	if len(rest) > 0 {
		if id, err := uuid.Parse(rest[0]); err == nil {
			intent.OrderID = &id
			rest = rest[1:]
		}
	}

	switch keyword {
	case "PICKUP":
		intent.Kind = IntentPickupConfirmed
	case "DELIVERED", "DONE":
		intent.Kind = IntentDelivered
	case "QUOTE":
		intent.Kind = IntentQuoteSubmitted
		if len(rest) == 0 || len(rest) > 2 {
			return PartnerIntent{}, fmt.Errorf("%w: quote needs weight and optional item count", ErrMalformedPayload)
		}
		w, err := parseCount(strings.TrimSuffix(strings.ToLower(rest[0]), "lbs"))
		if err != nil {
			return PartnerIntent{}, err
		}
		intent.WeightLbs = w
		if len(rest) == 2 {
			n, err := parseCount(rest[1])
			if err != nil {
				return PartnerIntent{}, err
			}
			intent.DryCleanItems = n
		}
		return intent, nil
	case "STATUS":
		intent.Kind = IntentStatusUpdate
		if len(rest) != 1 {
			return PartnerIntent{}, fmt.Errorf("%w: status update needs exactly one status", ErrMalformedPayload)
		}
		intent.Status = strings.ToLower(rest[0])
		return intent, nil
	default:
		return PartnerIntent{}, fmt.Errorf("%w: unknown intent %q", ErrUnsupportedEvent, fields[0])
	}

	if len(rest) > 0 {
		return PartnerIntent{}, fmt.Errorf("%w: unexpected trailing text", ErrMalformedPayload)
	}
	return intent, nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSuffix(s, "lb"), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid number %q", ErrMalformedPayload, s)
	}
	return n, nil
}
