package utils

import (
	"cmp"
	"math"
)

// Clamp limits value to [lo, hi]
func Clamp[T cmp.Ordered](value, lo, hi T) T {
	return max(lo, min(value, hi))
}

// RoundTo rounds value to places decimals, halves away from zero
func RoundTo(value float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(value*p) / p
}
