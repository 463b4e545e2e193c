package batch

import "math"

// Summary holds running statistics of one KPI.
type Summary struct {
	Mean float64
	Std  float64 // population standard deviation
	CV   float64 // coefficient of variation, percent
}

func nanSummary() Summary {
	return Summary{Mean: math.NaN(), Std: math.NaN(), CV: math.NaN()}
}

// running accumulates mean and variance (Welford).
type running struct {
	n    int
	mean float64
	m2   float64
}

func (r *running) add(x float64) {
	r.n++
	d := x - r.mean
	r.mean += d / float64(r.n)
	r.m2 += d * (x - r.mean)
}

func (r *running) summary() Summary {
	if r.n == 0 {
		return nanSummary()
	}
	std := math.Sqrt(r.m2 / float64(r.n))
	s := Summary{Mean: r.mean, Std: std}
	switch {
	case std == 0:
		s.CV = 0
	case r.mean == 0:
		s.CV = math.NaN()
	default:
		s.CV = std / math.Abs(r.mean) * 100
	}
	return s
}

// slope fits y = a + b*x by least squares over the points whose y is finite
// and returns b. ok is false with fewer than two such points or no spread
// in x.
func slope(xs, ys []float64) (float64, bool) {
	var n, sx, sy, sxx, sxy float64
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		x := xs[i]
		n++
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	if n < 2 {
		return 0, false
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, false
	}
	return (n*sxy - sx*sy) / den, true
}
