package signal

import "testing"

func TestAlignedAndReason(t *testing.T) {
	s := Signal{FramesAligned: []Timeframe{Daily, Weekly}}
	if !s.Aligned(Daily) || !s.Aligned(Weekly) || s.Aligned(Monthly) {
		t.Fatalf("unexpected alignment for %v", s.FramesAligned)
	}
	if got := s.Reason(); got != "daily+weekly" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := (Signal{}).Reason(); got != "" {
		t.Fatalf("empty signal should have empty reason, got %q", got)
	}
}
