// Package frame holds the columnar daily price frame shared by the precomputer, strategy and guards.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Base column names always present on a Frame.
const (
	Open      = "open"
	High      = "high"
	Low       = "low"
	Close     = "close"
	Volume    = "volume"
	SectorVol = "sector_vol"
)

// ErrNotAscending is returned when bars are not strictly date ordered.
var ErrNotAscending = errors.New("frame: dates must be strictly ascending")

// Bar is a single trading day.
type Bar struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	SectorVol float64   `json:"sector_vol"`
}

// Frame is a date-indexed set of equally sized float columns.
type Frame struct {
	dates []time.Time
	cols  map[string][]float64
	order []string
}

// FromBars builds a frame from bars that must already be strictly ascending by date.
func FromBars(bars []Bar) (*Frame, error) {
	f := &Frame{
		dates: make([]time.Time, len(bars)),
		cols:  make(map[string][]float64, 16),
	}
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volume := make([]float64, len(bars))
	sector := make([]float64, len(bars))
	for i, b := range bars {
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("%w: %s after %s", ErrNotAscending, b.Date.Format(time.DateOnly), bars[i-1].Date.Format(time.DateOnly))
		}
		f.dates[i] = b.Date
		open[i], high[i], low[i], closes[i], volume[i], sector[i] = b.Open, b.High, b.Low, b.Close, b.Volume, b.SectorVol
	}
	for _, c := range []struct {
		name string
		vals []float64
	}{{Open, open}, {High, high}, {Low, low}, {Close, closes}, {Volume, volume}, {SectorVol, sector}} {
		f.cols[c.name] = c.vals
		f.order = append(f.order, c.name)
	}
	return f, nil
}

// SortBars orders bars ascending by date and drops duplicate dates keeping the last one seen.
func SortBars(bars []Bar) []Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.dates)
}

// Date returns the date of row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Dates returns the date index. Callers must not mutate it.
func (f *Frame) Dates() []time.Time { return f.dates }

// Bar rebuilds row i as a Bar.
func (f *Frame) Bar(i int) Bar {
	return Bar{
		Date:      f.dates[i],
		Open:      f.cols[Open][i],
		High:      f.cols[High][i],
		Low:       f.cols[Low][i],
		Close:     f.cols[Close][i],
		Volume:    f.cols[Volume][i],
		SectorVol: f.cols[SectorVol][i],
	}
}

// Bars returns rows [lo, hi] inclusive as bars.
func (f *Frame) Bars(lo, hi int) []Bar {
	if lo < 0 {
		lo = 0
	}
	if hi >= f.Len() {
		hi = f.Len() - 1
	}
	if hi < lo {
		return nil
	}
	out := make([]Bar, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, f.Bar(i))
	}
	return out
}

// Column returns the named column. Callers must not mutate it.
func (f *Frame) Column(name string) ([]float64, bool) {
	vals, ok := f.cols[name]
	return vals, ok
}

// Columns lists column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Value returns column[name][i]; ok is false when the column is absent, i is out of range or the value is NaN.
func (f *Frame) Value(name string, i int) (float64, bool) {
	vals, ok := f.cols[name]
	if !ok || i < 0 || i >= len(vals) {
		return math.NaN(), false
	}
	v := vals[i]
	if math.IsNaN(v) {
		return v, false
	}
	return v, true
}

// SetColumn adds or replaces a derived column.
func (f *Frame) SetColumn(name string, vals []float64) error {
	if len(vals) != len(f.dates) {
		return fmt.Errorf("column %q has %d rows, frame has %d", name, len(vals), len(f.dates))
	}
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = vals
	return nil
}

// Clone returns a frame sharing column storage but with its own column set,
// so derived columns can be attached without touching the source.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		dates: f.dates,
		cols:  make(map[string][]float64, len(f.cols)),
		order: append([]string(nil), f.order...),
	}
	for k, v := range f.cols {
		out.cols[k] = v
	}
	return out
}

// Head returns a frame restricted to rows [0, i] inclusive.
func (f *Frame) Head(i int) *Frame {
	if i >= f.Len() {
		i = f.Len() - 1
	}
	out := &Frame{
		dates: f.dates[:i+1],
		cols:  make(map[string][]float64, len(f.cols)),
		order: append([]string(nil), f.order...),
	}
	for k, v := range f.cols {
		out.cols[k] = v[:i+1]
	}
	return out
}

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
