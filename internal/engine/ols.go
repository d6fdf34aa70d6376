package engine

// Line is a least-squares fit kept in centered form, y = YMean + Slope*(x - XMean),
// so exact data (flat or perfectly linear) extrapolates without rounding drift.
type Line struct {
	Slope float64
	XMean float64
	YMean float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.YMean + l.Slope*(x-l.XMean)
}

// Intercept returns the value at x = 0.
func (l Line) Intercept() float64 {
	return l.YMean - l.Slope*l.XMean
}

// Fit computes the ordinary least squares line through (xs[i], ys[i]).
// It returns false when the slices differ in length, are empty, or all xs are equal.
func Fit(xs, ys []float64) (Line, bool) {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return Line{}, false
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += xs[i]
		sy += ys[i]
	}
	xm := sx / float64(n)
	ym := sy / float64(n)

	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := xs[i] - xm
		sxy += dx * (ys[i] - ym)
		sxx += dx * dx
	}
	if sxx == 0 {
		return Line{}, false
	}
	return Line{Slope: sxy / sxx, XMean: xm, YMean: ym}, true
}

// FitIndexed fits prices against their 1-based sequence index.
func FitIndexed(prices []float64) (Line, bool) {
	xs := make([]float64, len(prices))
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	return Fit(xs, prices)
}
