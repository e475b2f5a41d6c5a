package statement

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	rawDateLayout  = "02012006"
	wireDateLayout = "02/01/2006"
)

var errNotNumeric = errors.New("not numeric")

// decodeMinorUnits parses a fixed-width unsigned digit field holding cents and
// returns the value in major units. Surrounding blanks are tolerated; anything
// else that is not a digit is rejected.
func decodeMinorUnits(raw string) (decimal.Decimal, error) {
	digits := strings.TrimSpace(raw)
	if digits == "" {
		return decimal.Zero, errNotNumeric
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return decimal.Zero, errNotNumeric
		}
	}
	cents, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, err
	}
	return cents.Shift(-2), nil
}

// decodeDate re-encodes a DDMMYYYY field as DD/MM/YYYY. When the field is not
// a valid calendar date the raw text is returned with ok=false.
func decodeDate(raw string) (string, bool) {
	t, err := time.Parse(rawDateLayout, raw)
	if err != nil {
		return raw, false
	}
	return t.Format(wireDateLayout), true
}
