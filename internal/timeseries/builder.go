package timeseries

import (
	"math"
	"sort"
	"time"
)

// Builder accumulates (timestamp, column, value) cells and produces a
// sorted Frame. Column order follows first appearance.
type Builder struct {
	cells map[int64]map[string]float64
	times map[int64]time.Time
	cols  []string
	seen  map[string]bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		cells: make(map[int64]map[string]float64),
		times: make(map[int64]time.Time),
		seen:  make(map[string]bool),
	}
}

// Set stores a cell, overwriting any previous value.
func (b *Builder) Set(t time.Time, col string, v float64) {
	b.ensure(t, col)
	b.cells[t.Unix()][col] = v
}

// SetFirst stores a cell only if the (timestamp, column) pair has not
// been set yet. Returns false when the cell already existed.
func (b *Builder) SetFirst(t time.Time, col string, v float64) bool {
	b.ensure(t, col)
	row := b.cells[t.Unix()]
	if _, exists := row[col]; exists {
		return false
	}
	row[col] = v
	return true
}

func (b *Builder) ensure(t time.Time, col string) {
	key := t.Unix()
	if _, ok := b.cells[key]; !ok {
		b.cells[key] = make(map[string]float64)
		b.times[key] = t.UTC()
	}
	if !b.seen[col] {
		b.seen[col] = true
		b.cols = append(b.cols, col)
	}
}

// Frame materializes the accumulated cells into a Frame with ascending
// timestamps. Cells never set hold NaN.
func (b *Builder) Frame() *Frame {
	out := New()
	keys := make([]int64, 0, len(b.cells))
	for k := range b.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		out.times = append(out.times, b.times[k])
	}
	for _, c := range b.cols {
		vals := make([]float64, len(keys))
		for i, k := range keys {
			if v, ok := b.cells[k][c]; ok {
				vals[i] = v
			} else {
				vals[i] = math.NaN()
			}
		}
		out.cols = append(out.cols, c)
		out.data[c] = vals
	}
	return out
}
