package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy returns the delay before the next attempt, given the number of
// attempts already made (1-based).
type Policy func(attempt int) time.Duration

// Fixed waits d between every attempt.
func Fixed(d time.Duration) Policy {
	return func(int) time.Duration { return d }
}

// Exponential doubles base per attempt up to max, with jitter.
func Exponential(base, max time.Duration) Policy {
	return func(attempt int) time.Duration { return ExponentialJitter(base, max, attempt) }
}

// ByName maps a configured strategy name to a Policy. Unknown names get Fixed.
func ByName(name string, base, max time.Duration) Policy {
	if name == "exponential" {
		return Exponential(base, max)
	}
	return Fixed(base)
}

func ExponentialJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	mul := math.Pow(2, float64(attempt-1))
	d := max
	if f := float64(base) * mul; f < float64(max) {
		d = time.Duration(f)
	}

	// simple jitter: +/- 20%
	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(rand.Int63n(int64(2*j)))
}
