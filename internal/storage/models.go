package storage

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the text form of Observation.Date in the store.
const DateLayout = "20060102"

// Observation is one dated reading of the tracked city and currency pair.
// Several observations may share a date.
type Observation struct {
	Date         time.Time
	ExchangeRate decimal.Decimal
	Temperature  decimal.Decimal
	Humidity     decimal.Decimal
}

// Validate rejects observations that must never be persisted.
func (o Observation) Validate() error {
	if o.Date.IsZero() {
		return errors.New("observation date is required")
	}
	if !o.ExchangeRate.IsPositive() {
		return errors.New("exchange rate must be positive")
	}
	return nil
}
