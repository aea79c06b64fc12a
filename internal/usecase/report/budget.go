package report

import "math"

// TokenBudget converts a word target into max_tokens:
// clamp(ceil(words * multiplier), floor, ceiling). It never decreases as
// words grow.
func TokenBudget(words int, multiplier float64, floor, ceiling int) int {
	if ceiling < floor {
		ceiling = floor
	}
	if words <= 0 {
		return floor
	}

	tokens := math.Ceil(float64(words) * multiplier)
	if tokens >= float64(ceiling) {
		return ceiling
	}
	return max(int(tokens), floor)
}
