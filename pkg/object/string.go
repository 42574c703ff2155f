package object

import "github.com/orbitlang/orbit/pkg/value"

// String is an immutable byte sequence with a precomputed FNV-1a hash.
// Equality is by content; identity is not required (spec.md §3). Strings
// are not deduplicated in the general heap — only the VM's dispatch-table
// key space gives strings anything resembling interning.
type String struct {
	Header
	Bytes []byte
	Hash  uint32
}

// NewString allocates a String object wrapping a copy of s. The caller is
// responsible for linking it into the VM's heap list (or pinning it) per
// spec.md §4.2's allocation discipline — this constructor does no GC
// bookkeeping of its own.
func NewString(s string) *String {
	b := make([]byte, len(s))
	copy(b, s)
	return &String{Bytes: b, Hash: value.HashBytes(b)}
}

// ObjKind implements value.Obj.
func (s *String) ObjKind() value.ObjectKind { return value.ObjString }

// HashObj implements the content-hash hook value.Hash looks for.
func (s *String) HashObj() uint32 { return s.Hash }

// EqualObj implements the content-equality hook value.Equal looks for.
func (s *String) EqualObj(other value.Obj) bool {
	o, ok := other.(*String)
	if !ok {
		return false
	}
	if s == o {
		return true
	}
	if s.Hash != o.Hash || len(s.Bytes) != len(o.Bytes) {
		return false
	}
	for i := range s.Bytes {
		if s.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

func (s *String) String() string { return string(s.Bytes) }
