package diagnostic

import "math"

// jsdNats computes the Jensen-Shannon divergence between two strictly
// positive PMFs of equal length, in nats. Round-off can push the sum a hair
// below zero for near-identical inputs; it is floored at 0.
func jsdNats(p, q []float64) float64 {
	var klP, klQ float64
	for i := range p {
		m := 0.5 * (p[i] + q[i])
		klP += p[i] * math.Log(p[i]/m)
		klQ += q[i] * math.Log(q[i]/m)
	}
	jsd := 0.5*klP + 0.5*klQ
	if jsd < 0 {
		return 0
	}
	return jsd
}

// JSDistance returns the normalized Jensen-Shannon distance between two
// strictly positive PMFs: sqrt(JSD / ln 2), clamped into [0, 1]. ln 2 is
// the divergence maximum in nats, so identical distributions score 0 and
// fully disjoint ones score 1. The metric is symmetric in its arguments.
func JSDistance(p, q []float64) float64 {
	d := math.Sqrt(jsdNats(p, q) / math.Ln2)
	if d > 1 {
		return 1
	}
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	return d
}
