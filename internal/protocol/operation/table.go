package operation

import (
	"fmt"
	"sort"

	"github.com/danmuck/copycatwire/internal/protocol/tlv"
)

// Decoder rebuilds a payload from its body bytes.
type Decoder func(body []byte) (Payload, error)

// Entry binds one payload tag to its kind and decoder.
type Entry struct {
	TypeID uint16
	Kind   Kind
	Name   string
	Decode Decoder
}

// Table is the shared tag table consulted at decode time. It is immutable
// once built and safe for concurrent use.
type Table struct {
	entries map[uint16]Entry
}

func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{entries: make(map[uint16]Entry, len(entries))}
	for _, e := range entries {
		if e.TypeID == 0 || !e.Kind.Valid() || e.Decode == nil {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidEntry, e)
		}
		if prev, ok := t.entries[e.TypeID]; ok {
			return nil, fmt.Errorf("%w: %d used by %q and %q", ErrDuplicateType, e.TypeID, prev.Name, e.Name)
		}
		t.entries[e.TypeID] = e
	}
	return t, nil
}

// With returns a new table holding t's entries plus extra.
func (t *Table) With(extra ...Entry) (*Table, error) {
	all := append(t.Entries(), extra...)
	return NewTable(all...)
}

// Entries lists the registered entries ordered by tag.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TypeID < out[j].TypeID
	})
	return out
}

func (t *Table) Lookup(typeID uint16) (Entry, bool) {
	e, ok := t.entries[typeID]
	return e, ok
}

// Marshal encodes p after checking that its tag is registered with the
// same kind, so a sender cannot produce bytes its peer cannot read.
func (t *Table) Marshal(p Payload) ([]byte, error) {
	if err := t.Check(p); err != nil {
		return nil, err
	}
	return Encode(p)
}

// Check reports whether p's tag is registered with p's kind.
func (t *Table) Check(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	e, ok := t.entries[p.TypeID()]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPayloadType, p.TypeID())
	}
	if e.Kind != p.Kind() {
		return fmt.Errorf("%w: type %d registered as %s, payload is %s", ErrPayloadKindMismatch, p.TypeID(), e.Kind, p.Kind())
	}
	return nil
}

// Unmarshal decodes exactly one payload from b and requires its kind to be
// want.
func (t *Table) Unmarshal(b []byte, want Kind) (Payload, error) {
	f, n, err := tlv.DecodeField(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidPayload, len(b)-n)
	}
	return t.Resolve(f.ID, Kind(f.Type), f.Value, want)
}

// Resolve rebuilds a payload from its already split tag, kind and body.
func (t *Table) Resolve(typeID uint16, kind Kind, body []byte, want Kind) (Payload, error) {
	e, ok := t.entries[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPayloadType, typeID)
	}
	if kind != want || e.Kind != want {
		return nil, fmt.Errorf("%w: type %d (%s) carried as %s, expected %s", ErrPayloadKindMismatch, typeID, e.Name, kind, want)
	}
	p, err := e.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("operation: decode %s: %w", e.Name, err)
	}
	if p == nil || p.TypeID() != typeID || p.Kind() != want {
		return nil, fmt.Errorf("%w: decoder for %s returned mismatched payload", ErrInvalidPayload, e.Name)
	}
	return p, nil
}
