package sequence

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		// 6x^5 - 15x^4 + 10x^3
		return x * x * x * (x*(x*6-15) + 10)
	default:
		return x
	}
}

// Eval returns the value of the envelope at time t (seconds). An empty
// envelope is 0; outside the keys it holds the nearest end value.
func (e Envelope) Eval(t float64) float64 {
	n := len(e)
	switch {
	case n == 0:
		return 0
	case t <= e[0].T:
		return e[0].V
	case t >= e[n-1].T:
		return e[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e[i], e[i+1]
		if t > b.T {
			continue
		}
		den := b.T - a.T
		if den <= 0 {
			return b.V
		}
		u := easeApply(a.Ease, clamp01((t-a.T)/den))
		return a.V + (b.V-a.V)*u
	}
	return e[n-1].V
}
