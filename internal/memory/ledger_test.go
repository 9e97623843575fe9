package memory

import (
	"fmt"
	"sync"
	"testing"
)

func TestLedger_RecordFormat(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	l.Record("u", "hi", "hello")

	all := l.All("u")
	if len(all) != 1 || all[0] != "Q: hi\nA: hello" {
		t.Fatalf("unexpected entries: %q", all)
	}
}

func TestLedger_RecentLastThreeOldestFirst(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	for i := 1; i <= 5; i++ {
		l.Record("u", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	got := l.Recent("u", 3)
	want := []string{"Q: q3\nA: a3", "Q: q4\nA: a4", "Q: q5\nA: a5"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLedger_RecentDefaultWindow(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	for i := 0; i < 10; i++ {
		l.Record("u", "q", "a")
	}
	if got := l.Recent("u", 0); len(got) != DefaultRecent {
		t.Fatalf("expected %d entries, got %d", DefaultRecent, len(got))
	}
}

func TestLedger_RecentFewerThanK(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	l.Record("u", "q1", "a1")

	if got := l.Recent("u", 3); len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got := l.Recent("nobody", 3); len(got) != 0 {
		t.Fatalf("expected no entries for unknown user, got %q", got)
	}
}

func TestLedger_UsersAreIsolated(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	l.Record("alice", "q", "a")
	l.Record("bob", "x", "y")

	if got := l.All("alice"); len(got) != 1 || got[0] != "Q: q\nA: a" {
		t.Fatalf("alice saw %q", got)
	}
	if l.Len("bob") != 1 {
		t.Fatalf("expected 1 entry for bob, got %d", l.Len("bob"))
	}
}

func TestLedger_ReturnsCopies(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	l.Record("u", "q", "a")

	got := l.Recent("u", 3)
	got[0] = "mutated"

	if l.All("u")[0] != "Q: q\nA: a" {
		t.Fatal("caller mutation leaked into the ledger")
	}
}

func TestLedger_MaxEntriesEvictsOldest(t *testing.T) {
	l := NewLedger(LedgerConfig{MaxEntries: 3})
	for i := 1; i <= 5; i++ {
		l.Record("u", fmt.Sprintf("q%d", i), "a")
	}

	all := l.All("u")
	if len(all) != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", len(all))
	}
	if all[0] != "Q: q3\nA: a" {
		t.Fatalf("expected oldest surviving entry q3, got %q", all[0])
	}
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	l := NewLedger(LedgerConfig{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Record("u", fmt.Sprintf("q%d", i), "a")
			_ = l.Recent("u", 3)
		}(i)
	}
	wg.Wait()

	if l.Len("u") != 50 {
		t.Fatalf("expected 50 entries, got %d", l.Len("u"))
	}
}
