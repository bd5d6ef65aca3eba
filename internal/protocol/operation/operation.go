// Package operation defines the polymorphic payloads carried by command,
// query and publish messages, and the tag table used to rebuild them from
// the wire.
//
// A payload is written as a single TLV field: the field id is the payload
// tag, the field type is its Kind, and the value is the payload body.
package operation

import (
	"errors"
	"fmt"

	"github.com/danmuck/copycatwire/internal/protocol/tlv"
)

type Kind uint8

const (
	KindCommand Kind = 1
	KindQuery   Kind = 2
	KindEvent   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindQuery:
		return "query"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) Valid() bool {
	return k >= KindCommand && k <= KindEvent
}

// Consistency is the read guarantee requested by a query.
type Consistency uint8

const (
	// Sequential queries may be answered by any node that has applied the
	// request's index.
	Sequential Consistency = 1
	// BoundedLinearizable queries are answered by the leader under its lease.
	BoundedLinearizable Consistency = 2
	// Linearizable queries are answered by the leader after a quorum check.
	Linearizable Consistency = 3
)

func (c Consistency) String() string {
	switch c {
	case Sequential:
		return "sequential"
	case BoundedLinearizable:
		return "bounded_linearizable"
	case Linearizable:
		return "linearizable"
	default:
		return fmt.Sprintf("consistency(%d)", uint8(c))
	}
}

func (c Consistency) Valid() bool {
	return c >= Sequential && c <= Linearizable
}

// RequiresLeader reports whether only the leader may answer.
func (c Consistency) RequiresLeader() bool {
	return c != Sequential
}

// ParseConsistency maps a level name back to its value.
func ParseConsistency(s string) (Consistency, error) {
	for _, c := range []Consistency{Sequential, BoundedLinearizable, Linearizable} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("operation: unknown consistency %q", s)
}

// Payload is one operation object. TypeID must be registered in the Table
// used on the receiving side.
type Payload interface {
	TypeID() uint16
	Kind() Kind
	MarshalBinary() ([]byte, error)
}

// Query is a read payload with a consistency level.
type Query interface {
	Payload
	Consistency() Consistency
}

// Cloner is implemented by payloads holding slices or maps. Clone returns a
// deep copy sharing no memory with the receiver.
type Cloner interface {
	Clone() Payload
}

// Clone deep-copies p when it implements Cloner and returns it unchanged
// otherwise.
func Clone[P Payload](p P) P {
	c, ok := any(p).(Cloner)
	if !ok {
		return p
	}
	if out, ok := c.Clone().(P); ok {
		return out
	}
	return p
}

var (
	ErrUnknownPayloadType  = errors.New("operation: unknown payload type")
	ErrPayloadKindMismatch = errors.New("operation: payload kind mismatch")
	ErrDuplicateType       = errors.New("operation: duplicate payload type")
	ErrInvalidEntry        = errors.New("operation: invalid table entry")
	ErrInvalidPayload      = errors.New("operation: invalid payload body")
)

// Encode renders p in its TLV wire form without consulting a table.
func Encode(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if !p.Kind().Valid() {
		return nil, fmt.Errorf("%w: %s", ErrPayloadKindMismatch, p.Kind())
	}
	body, err := p.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("operation: marshal type %d: %w", p.TypeID(), err)
	}
	return tlv.EncodeField(tlv.Field{ID: p.TypeID(), Type: uint8(p.Kind()), Value: body}), nil
}

// Digest returns the structural identity of p: its tag, kind and body
// bytes. Payloads with equal digests are the same operation.
func Digest(p Payload) (string, error) {
	b, err := Encode(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Equal compares payloads structurally. Unencodable payloads are never equal.
func Equal(a, b Payload) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	da, err := Digest(a)
	if err != nil {
		return false
	}
	db, err := Digest(b)
	if err != nil {
		return false
	}
	return da == db
}
