package utils

import (
	"math"
	"strings"
)

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace
func IsEmptyOrWhitespace(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Round2 rounds a value to 2 decimal places, half away from zero. dBA values
// are always positive, so this matches round-half-up for our data.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
