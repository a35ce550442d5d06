package timeseries

import (
	"math"
	"sort"
	"time"
)

// Frame is a wide time-series table: one row per UTC timestamp
// (ascending, unique) and one float64 column per named series.
// Missing cells hold NaN.
type Frame struct {
	times []time.Time
	cols  []string
	data  map[string][]float64
}

// New creates an empty frame.
func New() *Frame {
	return &Frame{data: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.times)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return len(f.times) == 0
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// Times returns the row timestamps in order.
func (f *Frame) Times() []time.Time {
	out := make([]time.Time, len(f.times))
	copy(out, f.times)
	return out
}

// Time returns the timestamp of row i.
func (f *Frame) Time(i int) time.Time {
	return f.times[i]
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the values of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	vals, ok := f.data[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, true
}

// Value returns the cell at row i of the named column, or NaN if the
// column does not exist.
func (f *Frame) Value(i int, name string) float64 {
	vals, ok := f.data[name]
	if !ok {
		return math.NaN()
	}
	return vals[i]
}

// AddColumn appends a column. The value count must match the row count;
// an existing column of the same name is replaced in place.
func (f *Frame) AddColumn(name string, vals []float64) {
	if len(vals) != len(f.times) {
		return
	}
	copied := make([]float64, len(vals))
	copy(copied, vals)
	if _, exists := f.data[name]; !exists {
		f.cols = append(f.cols, name)
	}
	f.data[name] = copied
}

// RenameColumn renames a column, keeping its position.
func (f *Frame) RenameColumn(old, new string) {
	vals, ok := f.data[old]
	if !ok || old == new {
		return
	}
	for i, c := range f.cols {
		if c == old {
			f.cols[i] = new
			break
		}
	}
	delete(f.data, old)
	f.data[new] = vals
}

// PrefixColumns renames every column to prefix+name.
func (f *Frame) PrefixColumns(prefix string) {
	for i, c := range f.cols {
		f.data[prefix+c] = f.data[c]
		delete(f.data, c)
		f.cols[i] = prefix + c
	}
}

// Select returns a new frame with the same timestamps and only the
// named columns that exist.
func (f *Frame) Select(names ...string) *Frame {
	out := &Frame{
		times: append([]time.Time(nil), f.times...),
		data:  make(map[string][]float64),
	}
	for _, name := range names {
		if vals, ok := f.data[name]; ok {
			out.cols = append(out.cols, name)
			out.data[name] = append([]float64(nil), vals...)
		}
	}
	return out
}

// rowIndex maps each timestamp to its row position.
func (f *Frame) rowIndex() map[int64]int {
	idx := make(map[int64]int, len(f.times))
	for i, t := range f.times {
		idx[t.Unix()] = i
	}
	return idx
}

// MergeInner joins two frames on exact timestamp equality, keeping only
// rows present in both. Columns of b whose names clash with columns of
// a are skipped.
func MergeInner(a, b *Frame) *Frame {
	out := New()
	bIdx := b.rowIndex()

	var rowsA, rowsB []int
	for i, t := range a.times {
		if j, ok := bIdx[t.Unix()]; ok {
			out.times = append(out.times, t)
			rowsA = append(rowsA, i)
			rowsB = append(rowsB, j)
		}
	}

	for _, c := range a.cols {
		vals := make([]float64, len(rowsA))
		for k, i := range rowsA {
			vals[k] = a.data[c][i]
		}
		out.cols = append(out.cols, c)
		out.data[c] = vals
	}
	for _, c := range b.cols {
		if _, clash := out.data[c]; clash {
			continue
		}
		vals := make([]float64, len(rowsB))
		for k, j := range rowsB {
			vals[k] = b.data[c][j]
		}
		out.cols = append(out.cols, c)
		out.data[c] = vals
	}
	return out
}

// MergeOuter joins two frames on timestamp, keeping rows present in
// either. Cells absent on one side are zero-filled when fillZero is
// set, NaN otherwise. Clashing column names of b are skipped.
func MergeOuter(a, b *Frame, fillZero bool) *Frame {
	out := New()
	out.times = unionTimes(a.times, b.times)

	fill := math.NaN()
	if fillZero {
		fill = 0
	}

	aIdx := a.rowIndex()
	bIdx := b.rowIndex()

	for _, c := range a.cols {
		vals := make([]float64, len(out.times))
		for k, t := range out.times {
			if i, ok := aIdx[t.Unix()]; ok {
				vals[k] = a.data[c][i]
			} else {
				vals[k] = fill
			}
		}
		out.cols = append(out.cols, c)
		out.data[c] = vals
	}
	for _, c := range b.cols {
		if _, clash := out.data[c]; clash {
			continue
		}
		vals := make([]float64, len(out.times))
		for k, t := range out.times {
			if j, ok := bIdx[t.Unix()]; ok {
				vals[k] = b.data[c][j]
			} else {
				vals[k] = fill
			}
		}
		out.cols = append(out.cols, c)
		out.data[c] = vals
	}
	return out
}

// Add outer-joins two frames and sums columns that exist on both sides
// element-wise, treating absent cells as zero. Columns present on only
// one side are kept, zero-filled where the side has no row.
func Add(a, b *Frame) *Frame {
	out := New()
	out.times = unionTimes(a.times, b.times)

	aIdx := a.rowIndex()
	bIdx := b.rowIndex()

	seen := make(map[string]bool)
	order := append([]string(nil), a.cols...)
	for _, c := range b.cols {
		if !a.HasColumn(c) {
			order = append(order, c)
		}
	}

	for _, c := range order {
		if seen[c] {
			continue
		}
		seen[c] = true
		vals := make([]float64, len(out.times))
		for k, t := range out.times {
			var v float64
			if i, ok := aIdx[t.Unix()]; ok && a.HasColumn(c) {
				v += a.data[c][i]
			}
			if j, ok := bIdx[t.Unix()]; ok && b.HasColumn(c) {
				v += b.data[c][j]
			}
			vals[k] = v
		}
		out.cols = append(out.cols, c)
		out.data[c] = vals
	}
	return out
}

func unionTimes(a, b []time.Time) []time.Time {
	seen := make(map[int64]time.Time, len(a)+len(b))
	for _, t := range a {
		seen[t.Unix()] = t
	}
	for _, t := range b {
		if _, ok := seen[t.Unix()]; !ok {
			seen[t.Unix()] = t
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
