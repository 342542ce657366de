package exporter

import (
	"strconv"
)

// FormatFloat formats a quantity without trailing zeros or exponent
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatOptionalFloat renders a missing value as an empty cell
func FormatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return FormatFloat(*f)
}
