package mongo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal fields are stored as strings so no precision is lost in BSON.
// These helpers convert between the stored form and decimal.Decimal at the
// repository boundary; nothing above this package sees the string form.

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal in %s: %w", field, err)
	}
	return d, nil
}

func parseOptDecimal(field string, value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	d, err := parseDecimal(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatOptDecimal(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}
