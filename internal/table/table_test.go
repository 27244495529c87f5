package table

import "testing"

func TestFindOrEvictFillsUnusedSlotsFirst(t *testing.T) {
	tb := New(4, 32)

	for i, name := range []string{"a.com", "b.com", "c.com", "d.com"} {
		idx, evicted := tb.FindOrEvict(name)
		if idx != i {
			t.Errorf("slot %d: index = %d, want %d", i, idx, i)
		}
		if evicted {
			t.Errorf("slot %d: unexpected eviction filling an unused slot", i)
		}
		if tb.Slot(idx).State != StateNew {
			t.Errorf("slot %d: state = %v, want StateNew", i, tb.Slot(idx).State)
		}
	}
}

func TestFindOrEvictReusesMatchingName(t *testing.T) {
	tb := New(4, 32)
	first, _ := tb.FindOrEvict("a.com")
	tb.Slot(first).State = StateDone

	second, evicted := tb.FindOrEvict("a.com")
	if second != first {
		t.Errorf("index = %d, want reuse of %d", second, first)
	}
	if evicted {
		t.Error("evicted = true, want false for a name match")
	}
	if tb.Slot(second).State != StateNew {
		t.Errorf("state = %v, want StateNew after re-query", tb.Slot(second).State)
	}
}

func TestFindOrEvictLRU(t *testing.T) {
	tb := New(4, 32)

	var indices []int
	for _, name := range []string{"a.com", "b.com", "c.com", "d.com"} {
		idx, _ := tb.FindOrEvict(name)
		tb.Slot(idx).State = StateDone
		indices = append(indices, idx)
	}

	// All four slots are full and distinct; a fifth query must evict the
	// least-recently-stamped slot, which is "a.com" at indices[0].
	fifth, evicted := tb.FindOrEvict("e.com")
	if !evicted {
		t.Fatal("evicted = false, want true when the table is full")
	}
	if fifth != indices[0] {
		t.Errorf("evicted index = %d, want the oldest slot %d", fifth, indices[0])
	}

	if _, found := tb.Lookup("a.com"); found {
		t.Error("a.com should no longer be findable after eviction")
	}
}

func TestLookupOnlyMatchesDoneSlots(t *testing.T) {
	tb := New(4, 32)
	idx, _ := tb.FindOrEvict("a.com")

	if _, found := tb.Lookup("a.com"); found {
		t.Error("a NEW slot should not be returned by Lookup")
	}

	tb.Slot(idx).State = StateDone
	tb.Slot(idx).Addr = []byte{1, 2, 3, 4}

	addr, found := tb.Lookup("a.com")
	if !found {
		t.Fatal("expected a.com to be found once DONE")
	}
	if string(addr) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("addr = %v", addr)
	}
}

func TestByTransactionIndexBounds(t *testing.T) {
	tb := New(4, 32)
	if _, ok := tb.ByTransactionIndex(-1); ok {
		t.Error("expected out-of-range index to fail")
	}
	if _, ok := tb.ByTransactionIndex(4); ok {
		t.Error("expected out-of-range index to fail")
	}
	if _, ok := tb.ByTransactionIndex(0); !ok {
		t.Error("expected index 0 to be in range")
	}
}

func TestFindOrEvictTruncatesLongNames(t *testing.T) {
	tb := New(4, 8)
	idx, _ := tb.FindOrEvict("abcdefghijklmnop")
	if got := tb.Slot(idx).Name; got != "abcdefgh" {
		t.Errorf("Name = %q, want truncated to 8 bytes %q", got, "abcdefgh")
	}
}
