package object

import "github.com/orbitlang/orbit/pkg/value"

// maxLoadFactor bounds occupancy before Map rehashes into a larger table.
// Capacity is always a power of two, per spec.md §3.
const maxLoadFactor = 0.75

const initialMapCapacity = 8

type mapEntry struct {
	used  bool
	key   value.Value
	val   value.Value
}

// Map is an open-addressed hash table keyed by Value. Keys that compare
// equal under Orbit's equality relation hash equal — strings by content
// (String.HashObj), numbers by the bit-mixed pair of halves
// (value.HashNumber) — which is exactly what value.Hash and value.Equal
// already guarantee, so Map simply delegates to them.
type Map struct {
	Header
	entries []mapEntry
	count   int // occupied slots, used for load-factor and Len
}

// NewMap allocates an empty Map with the initial capacity.
func NewMap() *Map {
	return &Map{entries: make([]mapEntry, initialMapCapacity)}
}

// ObjKind implements value.Obj.
func (m *Map) ObjKind() value.ObjectKind { return value.ObjMap }

// Len returns the number of occupied key/value pairs.
func (m *Map) Len() int { return m.count }

// Get looks up key, returning (value, true) if present.
func (m *Map) Get(key value.Value) (value.Value, bool) {
	idx, found := m.find(key)
	if !found {
		return value.Nil, false
	}
	return m.entries[idx].val, true
}

// Set inserts or overwrites key with val, growing the table first if the
// load factor would otherwise be exceeded. Returns true if this inserted
// a new key, false if it overwrote an existing one.
func (m *Map) Set(key, val value.Value) bool {
	if float64(m.count+1) > float64(len(m.entries))*maxLoadFactor {
		m.grow()
	}
	idx, found := m.find(key)
	m.entries[idx] = mapEntry{used: true, key: key, val: val}
	if !found {
		m.count++
	}
	return !found
}

// Delete removes key if present, reporting whether it was found. The
// deleted slot is emptied and the rest of its probe run is re-inserted,
// so no tombstone marker is left behind (simpler than tombstones, and
// safe here because rehashing only ever happens on growth, never on
// delete).
func (m *Map) Delete(key value.Value) bool {
	idx, found := m.find(key)
	if !found {
		return false
	}
	m.entries[idx] = mapEntry{}
	m.count--
	// Re-insert every entry in the probe chain after idx so later
	// lookups that depended on idx being occupied still terminate
	// correctly (classic open-addressing deletion).
	capacity := len(m.entries)
	for i := (idx + 1) % capacity; m.entries[i].used; i = (i + 1) % capacity {
		e := m.entries[i]
		m.entries[i] = mapEntry{}
		m.count--
		j, _ := m.find(e.key)
		m.entries[j] = mapEntry{used: true, key: e.key, val: e.val}
		m.count++
	}
	return true
}

// find returns the slot index for key: either the slot already holding
// an equal key (found=true), or the first empty slot in its probe
// sequence where it would be inserted (found=false).
func (m *Map) find(key value.Value) (int, bool) {
	capacity := len(m.entries)
	idx := int(value.Hash(key)) % capacity
	if idx < 0 {
		idx += capacity
	}
	for {
		e := &m.entries[idx]
		if !e.used {
			return idx, false
		}
		if value.Equal(e.key, key) {
			return idx, true
		}
		idx = (idx + 1) % capacity
	}
}

func (m *Map) grow() {
	old := m.entries
	m.entries = make([]mapEntry, len(old)*2)
	m.count = 0
	for _, e := range old {
		if e.used {
			m.Set(e.key, e.val)
		}
	}
}

// Each calls fn for every occupied key/value pair. Used by the garbage
// collector's mark phase and by debugger dumps.
func (m *Map) Each(fn func(key, val value.Value)) {
	for _, e := range m.entries {
		if e.used {
			fn(e.key, e.val)
		}
	}
}
