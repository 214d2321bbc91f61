package paper

import (
	"math/rand"
	"testing"
	"time"
)

var base = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return base.AddDate(0, 0, n) }

func TestLedgerRecordEntries(t *testing.T) {
	ledger := NewLedger(2)
	ledger.Record(Entry{ExitDate: day(1), ReturnPct: 2})

	entries := ledger.Entries()
	if len(entries) != 1 || ledger.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entries[0].ReturnPct = 99
	if ledger.Entries()[0].ReturnPct != 2 {
		t.Fatalf("Entries must return a copy")
	}
}

func TestSnapshotExcludesSameDayAndFuture(t *testing.T) {
	ledger := NewLedger(0)
	ledger.Record(Entry{ExitDate: day(1), ReturnPct: 4})
	ledger.Record(Entry{ExitDate: day(2), ReturnPct: -2})
	ledger.Record(Entry{ExitDate: day(3), ReturnPct: 10})

	snap := ledger.SnapshotAt(day(3))
	if snap.SampleSize != 2 {
		t.Fatalf("expected the day-3 exit to be excluded, sample %d", snap.SampleSize)
	}
	if snap.WinRate != 0.5 || snap.ProfitFactor != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if empty := ledger.SnapshotAt(day(1)); empty.SampleSize != 0 || empty.WinRate != 0 || empty.ProfitFactor != 0 {
		t.Fatalf("expected empty snapshot, got %+v", empty)
	}
}

func TestProfitFactorEdges(t *testing.T) {
	if pf := ProfitFactor(5, 0); pf != MaxProfitFactor {
		t.Fatalf("no losses should cap, got %.2f", pf)
	}
	if pf := ProfitFactor(0, 0); pf != 0 {
		t.Fatalf("no gains and no losses should be 0, got %.2f", pf)
	}
	if pf := ProfitFactor(1000, 1); pf != MaxProfitFactor {
		t.Fatalf("huge ratio should cap, got %.2f", pf)
	}
	if pf := ProfitFactor(3, 2); pf != 1.5 {
		t.Fatalf("unexpected profit factor %.2f", pf)
	}
}

// Reordering entries or dropping entries that exit on or after D never changes snapshot(D).
func TestSnapshotCausalUnderShuffleAndDeletion(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	entries := make([]Entry, 120)
	for i := range entries {
		entries[i] = Entry{ExitDate: day(rng.Intn(60)), ReturnPct: rng.NormFloat64() * 3}
	}
	for _, d := range []int{0, 10, 30, 45, 61} {
		at := day(d)
		want := SnapshotFrom(entries, at)

		shuffled := append([]Entry(nil), entries...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := SnapshotFrom(shuffled, at); got != want {
			t.Fatalf("day %d: shuffle changed snapshot %+v -> %+v", d, want, got)
		}

		var past []Entry
		for _, e := range shuffled {
			if e.ExitDate.Before(at) {
				past = append(past, e)
			}
		}
		if got := SnapshotFrom(past, at); got != want {
			t.Fatalf("day %d: deleting future entries changed snapshot %+v -> %+v", d, want, got)
		}
	}
}
