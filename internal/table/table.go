// Package table implements the fixed-capacity name table at the center of
// the resolver: one slot per in-flight or resolved name, selected by
// exact-name match or, failing that, LRU eviction. It holds no locks — it
// is mutated exclusively from the resolver's single event-loop goroutine
// (see SPEC_FULL.md §5).
package table

import "net"

// State is a slot's position in its lifecycle, mirroring STATE_* in the
// embedded source's struct namemap.
type State uint8

const (
	StateUnused State = iota
	StateNew
	StateAsking
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnused:
		return "UNUSED"
	case StateNew:
		return "NEW"
	case StateAsking:
		return "ASKING"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// Slot is one row of the name table.
type Slot struct {
	Name    string
	Addr    net.IP
	State   State
	Tmr     uint8
	Retries uint8
	Seqno   uint8
	Err     uint8
	IsMDNS  bool
}

// Table is the fixed-size slot array. The zero value is not usable; use New.
type Table struct {
	slots      []Slot
	seqno      uint8
	maxNameLen int
}

// New builds a table with the given capacity and maximum stored-name
// length (truncation boundary, RESOLV_CONF_MAX_DOMAIN_NAME_SIZE).
func New(capacity, maxNameLen int) *Table {
	return &Table{slots: make([]Slot, capacity), maxNameLen: maxNameLen}
}

// Len returns the table's fixed capacity.
func (t *Table) Len() int { return len(t.slots) }

// Slot returns a pointer to the slot at index i for direct mutation by
// the query engine and response handler. Index must be in [0, Len()).
func (t *Table) Slot(i int) *Slot { return &t.slots[i] }

// FindOrEvict implements §4.2's slot-selection algorithm: reuse the first
// UNUSED slot, or a slot already holding this name (an in-flight query
// being re-queried), or else the least-recently-stamped slot by modular
// seqno distance. It stamps the returned slot as STATE_NEW with a fresh
// seqno and the (possibly truncated) name, and reports whether an
// existing slot was evicted to make room.
func (t *Table) FindOrEvict(name string) (index int, evicted bool) {
	name = truncate(name, t.maxNameLen)

	victim := -1
	var maxAge uint8

	for i := range t.slots {
		s := &t.slots[i]
		if s.State == StateUnused {
			victim = i
			break
		}
		if s.Name == name {
			victim = i
			break
		}
		age := t.seqno - s.Seqno
		if victim == -1 || age > maxAge {
			maxAge = age
			victim = i
		}
	}

	s := &t.slots[victim]
	evicted = s.State != StateUnused && s.Name != name
	*s = Slot{
		Name:  name,
		State: StateNew,
		Seqno: t.seqno,
	}
	t.seqno++
	return victim, evicted
}

// Lookup scans for a DONE slot whose name exactly matches (case-sensitive,
// per spec §4.6) and returns its address.
func (t *Table) Lookup(name string) (net.IP, bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.State == StateDone && s.Name == name {
			return s.Addr, true
		}
	}
	return nil, false
}

// ByTransactionIndex returns the slot at index i if it is in range,
// matching the O(1)-by-construction correlation promised in spec §8.
func (t *Table) ByTransactionIndex(i int) (*Slot, bool) {
	if i < 0 || i >= len(t.slots) {
		return nil, false
	}
	return &t.slots[i], true
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
