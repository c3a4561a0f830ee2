// Package extract turns scraped free text into numeric strings.
package extract

import (
	"regexp"
	"strings"
)

var numericRun = regexp.MustCompile(`[0-9.]+`)

// Numeric returns every maximal run of ASCII digits and periods in text,
// concatenated in scan order. Text without digits yields "".
//
// Separate numbers are joined without a separator, so "12 of 34" becomes
// "1234". Callers must select a fragment holding a single number. Signs and
// thousands separators are dropped.
func Numeric(text string) string {
	runs := numericRun.FindAllString(text, -1)
	if len(runs) == 0 {
		return ""
	}
	joined := strings.Join(runs, "")
	if !strings.ContainsAny(joined, "0123456789") {
		return ""
	}
	return joined
}

// NormalizeDecimalComma rewrites locale decimal commas as periods.
func NormalizeDecimalComma(text string) string {
	return strings.ReplaceAll(text, ",", ".")
}
