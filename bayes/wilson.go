package bayes

import "math"

// z95 is the normal quantile for a 95% two-sided interval.
const z95 = 1.96

// wilsonInterval returns the Wilson score interval for a success proportion
// observed over n trials. A zero-trial input returns the maximally uncertain
// interval [0, 1].
func wilsonInterval(successes, trials int) (low, high float64) {
	if trials == 0 {
		return 0, 1
	}
	n := float64(trials)
	p := float64(successes) / n
	z2 := z95 * z95

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := (z95 * math.Sqrt(p*(1-p)/n+z2/(4*n*n))) / denom

	low = center - margin
	high = center + margin
	if low < 0 {
		low = 0
	}
	if high > 1 {
		high = 1
	}
	return low, high
}
