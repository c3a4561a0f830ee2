package alerting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Notification carries the values of one observation to be announced.
type Notification struct {
	City          string
	BaseCurrency  string
	QuoteCurrency string
	Temperature   decimal.Decimal
	Humidity      decimal.Decimal
	ExchangeRate  decimal.Decimal
}

// Messages renders the notification as temperature, humidity and exchange
// rate lines, in that order.
func Messages(note Notification) []string {
	return []string{
		fmt.Sprintf("Current Temperature in %s: %s °C", note.City, note.Temperature.String()),
		fmt.Sprintf("Current Humidity in %s: %s %%", note.City, note.Humidity.String()),
		fmt.Sprintf("Today's %s price in %s: %s", note.BaseCurrency, note.QuoteCurrency, note.ExchangeRate.String()),
	}
}
