package queries

import (
	"encoding/json"

	"freshfold/internal/domain/pricing"
	"freshfold/internal/pkg/errs"
)

var ErrInvalidServiceParams = errs.Class("invalid service params", errs.ErrValidation)

//go:generate mockgen -source=quote.go -destination=../../../tests/mock/queries/mock_quote.go -package=queriesmock
type QuoteQueries interface {
	Preview(serviceType string, params json.RawMessage) (pricing.Quote, error)
}

type quoteQueriesImpl struct {
	engine *pricing.Engine
}

func NewQuoteQueries(engine *pricing.Engine) QuoteQueries {
	return &quoteQueriesImpl{engine: engine}
}

func (q *quoteQueriesImpl) Preview(serviceType string, raw json.RawMessage) (pricing.Quote, error) {
	params, err := pricing.ParseParams(serviceType, raw)
	if err != nil {
		return pricing.Quote{}, errs.Mark(err, ErrInvalidServiceParams)
	}
	quote, err := q.engine.Quote(params)
	if err != nil {
		return pricing.Quote{}, errs.Mark(err, ErrInvalidServiceParams)
	}
	return quote, nil
}
