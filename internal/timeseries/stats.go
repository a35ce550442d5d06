package timeseries

import (
	"math"
	"sort"
)

// The statistics below ignore NaN values, matching the semantics the
// scenario engine needs: a member missing at one timestamp must not
// poison the whole row.

// Mean returns the mean of the non-NaN values, or NaN if there are none.
func Mean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std returns the population standard deviation of the non-NaN values.
func Std(vals []float64) float64 {
	mean := Mean(vals)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			d := v - mean
			sum += d * d
			n++
		}
	}
	return math.Sqrt(sum / float64(n))
}

// Min returns the smallest non-NaN value, or NaN if there are none.
func Min(vals []float64) float64 {
	out := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v < out {
			out = v
		}
	}
	return out
}

// Max returns the largest non-NaN value, or NaN if there are none.
func Max(vals []float64) float64 {
	out := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v > out {
			out = v
		}
	}
	return out
}

// Percentile returns the p-th percentile (0-100) of the non-NaN values
// using linear interpolation between order statistics, or NaN if there
// are none.
func Percentile(vals []float64, p float64) float64 {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	if len(clean) == 1 {
		return clean[0]
	}

	rank := p / 100 * float64(len(clean)-1)
	lo := int(math.Floor(rank))
	if lo >= len(clean)-1 {
		return clean[len(clean)-1]
	}
	frac := rank - float64(lo)
	return clean[lo] + frac*(clean[lo+1]-clean[lo])
}

// RowApply computes fn over the named columns for every row and returns
// one value per row. Missing columns are skipped entirely.
func (f *Frame) RowApply(names []string, fn func([]float64) float64) []float64 {
	var cols [][]float64
	for _, name := range names {
		if vals, ok := f.data[name]; ok {
			cols = append(cols, vals)
		}
	}
	out := make([]float64, f.Len())
	row := make([]float64, len(cols))
	for i := range out {
		for j, c := range cols {
			row[j] = c[i]
		}
		out[i] = fn(row)
	}
	return out
}
