package frame

import (
	"errors"
	"math"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFromBarsRejectsUnordered(t *testing.T) {
	bars := []Bar{{Date: day(2024, 1, 3)}, {Date: day(2024, 1, 2)}}
	if _, err := FromBars(bars); !errors.Is(err, ErrNotAscending) {
		t.Fatalf("expected ErrNotAscending, got %v", err)
	}
}

func TestSortBarsDedupes(t *testing.T) {
	bars := SortBars([]Bar{
		{Date: day(2024, 1, 3), Close: 3},
		{Date: day(2024, 1, 2), Close: 2},
		{Date: day(2024, 1, 3), Close: 4},
	})
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[1].Close != 4 {
		t.Fatalf("expected last duplicate to win, got %.1f", bars[1].Close)
	}
}

func TestValueAndSetColumn(t *testing.T) {
	f, err := FromBars([]Bar{{Date: day(2024, 1, 2), Close: 10}, {Date: day(2024, 1, 3), Close: 11}})
	if err != nil {
		t.Fatalf("FromBars: %v", err)
	}
	if v, ok := f.Value(Close, 1); !ok || v != 11 {
		t.Fatalf("unexpected close %.2f ok=%v", v, ok)
	}
	if err := f.SetColumn("x", []float64{1}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if err := f.SetColumn("x", []float64{math.NaN(), 2}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if _, ok := f.Value("x", 0); ok {
		t.Fatalf("NaN must report not ok")
	}
	if _, ok := f.Value("missing", 0); ok {
		t.Fatalf("missing column must report not ok")
	}
	clone := f.Clone()
	_ = clone.SetColumn("y", []float64{1, 2})
	if _, ok := f.Column("y"); ok {
		t.Fatalf("clone leaked column into source")
	}
	head := f.Head(0)
	if head.Len() != 1 {
		t.Fatalf("expected head len 1, got %d", head.Len())
	}
}

func TestPeriodEnd(t *testing.T) {
	// 2024-01-03 is a Wednesday.
	if got := PeriodEnd(day(2024, 1, 3), Weekly); !got.Equal(day(2024, 1, 7)) {
		t.Fatalf("weekly end = %s", got)
	}
	if got := PeriodEnd(day(2024, 1, 7), Weekly); !got.Equal(day(2024, 1, 7)) {
		t.Fatalf("sunday should end its own week, got %s", got)
	}
	if got := PeriodEnd(day(2024, 2, 10), Monthly); !got.Equal(day(2024, 2, 29)) {
		t.Fatalf("monthly end = %s", got)
	}
}

func TestResampleForwardFillNoLeak(t *testing.T) {
	var bars []Bar
	start := day(2024, 1, 1) // Monday
	for i := 0; i < 15; i++ {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, Bar{Date: d, Close: float64(i)})
	}
	f, err := FromBars(bars)
	if err != nil {
		t.Fatalf("FromBars: %v", err)
	}
	ends, last, ok := f.Resample(Close, Weekly)
	if !ok || len(ends) != 3 {
		t.Fatalf("expected 3 weekly buckets, got %d", len(ends))
	}
	if last[0] != 4 || last[1] != 11 {
		t.Fatalf("unexpected weekly closes %v", last)
	}
	filled := ForwardFill(f.Dates(), ends, last)
	for i, d := range f.Dates() {
		if d.Before(day(2024, 1, 8)) {
			if !math.IsNaN(filled[i]) {
				t.Fatalf("row %s saw an unfinished week: %.1f", d.Format(time.DateOnly), filled[i])
			}
			continue
		}
		if d.Before(day(2024, 1, 15)) && filled[i] != 4 {
			t.Fatalf("row %s expected first week close 4, got %.1f", d.Format(time.DateOnly), filled[i])
		}
		if !d.Before(day(2024, 1, 15)) && filled[i] != 11 {
			t.Fatalf("row %s expected second week close 11, got %.1f", d.Format(time.DateOnly), filled[i])
		}
	}
}
