package frame

import (
	"math"
	"time"
)

// Period is a calendar bucket used to resample daily rows.
type Period int

const (
	// Weekly buckets end on Sunday.
	Weekly Period = iota + 1
	// Monthly buckets end on the last calendar day of the month.
	Monthly
)

func (p Period) String() string {
	switch p {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// PeriodEnd returns midnight of the last calendar day of the bucket containing t.
func PeriodEnd(t time.Time, p Period) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch p {
	case Weekly:
		return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	case Monthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// Resample collapses a column to one value per bucket, taking the last row of each bucket.
// ends holds the bucket end labels, ascending.
func (f *Frame) Resample(name string, p Period) (ends []time.Time, last []float64, ok bool) {
	vals, ok := f.cols[name]
	if !ok || len(vals) == 0 {
		return nil, nil, false
	}
	for i, d := range f.dates {
		end := PeriodEnd(d, p)
		if n := len(ends); n > 0 && ends[n-1].Equal(end) {
			last[n-1] = vals[i]
			continue
		}
		ends = append(ends, end)
		last = append(last, vals[i])
	}
	return ends, last, true
}

// ForwardFill maps bucket values back onto daily dates. A bucket becomes visible on the first
// daily row dated on or after its end label, so no row observes a bucket that has not closed.
func ForwardFill(dates, ends []time.Time, vals []float64) []float64 {
	out := make([]float64, len(dates))
	k := -1
	for i, d := range dates {
		y, m, dd := d.Date()
		day := time.Date(y, m, dd, 0, 0, 0, 0, d.Location())
		for k+1 < len(ends) && !ends[k+1].After(day) {
			k++
		}
		if k < 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[k]
	}
	return out
}
