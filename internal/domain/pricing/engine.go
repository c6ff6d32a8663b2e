package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidServiceParams signals service parameters the rate card cannot price.
var ErrInvalidServiceParams = errors.New("invalid service params")

const (
	maxLaundryPounds  = 200
	maxDryCleanItems  = 100
	maxRooms          = 20
	basisPointsFactor = 10000
)

// RateCard holds every price the engine needs, in minor currency units.
type RateCard struct {
	LaundryPerPoundCents   int64
	LaundryMinimumCents    int64
	DryCleanPerItemCents   int64
	CleaningBaseCents      int64
	CleaningPerBedroom     int64
	CleaningPerBathroom    int64
	CleaningDeepMultiplier int64 // basis points applied to the cleaning subtotal
	DeliveryFeeCents       int64
	TaxRateBps             int64
}

type LaundryParams struct {
	WeightLbs     int64 `json:"weight_lbs"`
	DryCleanItems int64 `json:"dry_clean_items"`
}

type CleaningParams struct {
	Bedrooms  int64 `json:"bedrooms"`
	Bathrooms int64 `json:"bathrooms"`
	Deep      bool  `json:"deep"`
}

type Params struct {
	ServiceType string
	Laundry     *LaundryParams
	Cleaning    *CleaningParams
}

type LineItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
	AmountCents int64  `json:"amount_cents"`
}

type Quote struct {
	LineItems   []LineItem `json:"line_items"`
	Subtotal    int64      `json:"subtotal"`
	Tax         int64      `json:"tax"`
	DeliveryFee int64      `json:"delivery_fee"`
	Total       int64      `json:"total"`
}

// Engine is a pure function of its rate card and the params. No clock, no I/O.
type Engine struct {
	rates RateCard
}

func NewEngine(rates RateCard) *Engine {
	return &Engine{rates: rates}
}

// ParseParams decodes raw service params for a service type, rejecting unknown fields.
func ParseParams(serviceType string, raw json.RawMessage) (Params, error) {
	p := Params{ServiceType: serviceType}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Params{}, fmt.Errorf("%w: params are required", ErrInvalidServiceParams)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	switch serviceType {
	case "laundry":
		var lp LaundryParams
		if err := dec.Decode(&lp); err != nil {
			return Params{}, fmt.Errorf("%w: %v", ErrInvalidServiceParams, err)
		}
		p.Laundry = &lp
	case "cleaning":
		var cp CleaningParams
		if err := dec.Decode(&cp); err != nil {
			return Params{}, fmt.Errorf("%w: %v", ErrInvalidServiceParams, err)
		}
		p.Cleaning = &cp
	default:
		return Params{}, fmt.Errorf("%w: unknown service type %q", ErrInvalidServiceParams, serviceType)
	}
	return p, nil
}

func (e *Engine) Quote(p Params) (Quote, error) {
	switch p.ServiceType {
	case "laundry":
		if p.Laundry == nil {
			return Quote{}, fmt.Errorf("%w: laundry params missing", ErrInvalidServiceParams)
		}
		return e.quoteLaundry(*p.Laundry)
	case "cleaning":
		if p.Cleaning == nil {
			return Quote{}, fmt.Errorf("%w: cleaning params missing", ErrInvalidServiceParams)
		}
		return e.quoteCleaning(*p.Cleaning)
	default:
		return Quote{}, fmt.Errorf("%w: unknown service type %q", ErrInvalidServiceParams, p.ServiceType)
	}
}

func (e *Engine) quoteLaundry(p LaundryParams) (Quote, error) {
	if p.WeightLbs < 0 || p.WeightLbs > maxLaundryPounds {
		return Quote{}, fmt.Errorf("%w: weight_lbs out of range", ErrInvalidServiceParams)
	}
	if p.DryCleanItems < 0 || p.DryCleanItems > maxDryCleanItems {
		return Quote{}, fmt.Errorf("%w: dry_clean_items out of range", ErrInvalidServiceParams)
	}
	if p.WeightLbs == 0 && p.DryCleanItems == 0 {
		return Quote{}, fmt.Errorf("%w: nothing to price", ErrInvalidServiceParams)
	}

	var items []LineItem
	if p.WeightLbs > 0 {
		amount := p.WeightLbs * e.rates.LaundryPerPoundCents
		items = append(items, LineItem{
			Code:        "wash_fold",
			Description: "Wash and fold",
			Quantity:    p.WeightLbs,
			UnitCents:   e.rates.LaundryPerPoundCents,
			AmountCents: amount,
		})
		if amount < e.rates.LaundryMinimumCents {
			items = append(items, LineItem{
				Code:        "minimum_adjustment",
				Description: "Minimum order adjustment",
				Quantity:    1,
				UnitCents:   e.rates.LaundryMinimumCents - amount,
				AmountCents: e.rates.LaundryMinimumCents - amount,
			})
		}
	}
	if p.DryCleanItems > 0 {
		items = append(items, LineItem{
			Code:        "dry_clean",
			Description: "Dry cleaning",
			Quantity:    p.DryCleanItems,
			UnitCents:   e.rates.DryCleanPerItemCents,
			AmountCents: p.DryCleanItems * e.rates.DryCleanPerItemCents,
		})
	}
	return e.finish(items, e.rates.DeliveryFeeCents), nil
}

func (e *Engine) quoteCleaning(p CleaningParams) (Quote, error) {
	if p.Bedrooms < 0 || p.Bedrooms > maxRooms || p.Bathrooms < 0 || p.Bathrooms > maxRooms {
		return Quote{}, fmt.Errorf("%w: room count out of range", ErrInvalidServiceParams)
	}

	items := []LineItem{{
		Code:        "cleaning_base",
		Description: "Home cleaning",
		Quantity:    1,
		UnitCents:   e.rates.CleaningBaseCents,
		AmountCents: e.rates.CleaningBaseCents,
	}}
	if p.Bedrooms > 0 {
		items = append(items, LineItem{
			Code:        "bedroom",
			Description: "Bedrooms",
			Quantity:    p.Bedrooms,
			UnitCents:   e.rates.CleaningPerBedroom,
			AmountCents: p.Bedrooms * e.rates.CleaningPerBedroom,
		})
	}
	if p.Bathrooms > 0 {
		items = append(items, LineItem{
			Code:        "bathroom",
			Description: "Bathrooms",
			Quantity:    p.Bathrooms,
			UnitCents:   e.rates.CleaningPerBathroom,
			AmountCents: p.Bathrooms * e.rates.CleaningPerBathroom,
		})
	}
	if p.Deep && e.rates.CleaningDeepMultiplier > basisPointsFactor {
		base := sum(items)
		surcharge := roundBps(base, e.rates.CleaningDeepMultiplier-basisPointsFactor)
		items = append(items, LineItem{
			Code:        "deep_clean",
			Description: "Deep clean surcharge",
			Quantity:    1,
			UnitCents:   surcharge,
			AmountCents: surcharge,
		})
	}
	return e.finish(items, 0), nil
}

func (e *Engine) finish(items []LineItem, deliveryFee int64) Quote {
	subtotal := sum(items)
	tax := roundBps(subtotal, e.rates.TaxRateBps)
	return Quote{
		LineItems:   items,
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Total:       subtotal + tax + deliveryFee,
	}
}

func sum(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.AmountCents
	}
	return total
}

// roundBps applies basis points with half-up rounding.
func roundBps(amount, bps int64) int64 {
	return (amount*bps + basisPointsFactor/2) / basisPointsFactor
}
