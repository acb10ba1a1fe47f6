package utils

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
)

// MinorUnits converts a decimal amount (25.50) to the payment provider's
// integer minor units (2550), rounding half away from zero to absorb float
// representation noise.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func NumericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err == nil {
		return f.Float64
	}
	text, err := value.MarshalJSON()
	if err != nil {
		return 0
	}
	var out float64
	if _, err := fmt.Sscan(string(text), &out); err != nil {
		return 0
	}
	return out
}
