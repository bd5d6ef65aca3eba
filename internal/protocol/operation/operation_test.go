package operation

import (
	"errors"
	"testing"

	"github.com/danmuck/copycatwire/internal/protocol/tlv"
	"github.com/danmuck/copycatwire/internal/testutil/testlog"
)

type counterIncrement struct {
	Delta uint8
}

func (counterIncrement) TypeID() uint16 { return FirstUserTypeID }
func (counterIncrement) Kind() Kind     { return KindCommand }
func (c counterIncrement) MarshalBinary() ([]byte, error) {
	return []byte{c.Delta}, nil
}

func decodeCounterIncrement(body []byte) (Payload, error) {
	if len(body) != 1 {
		return nil, ErrInvalidPayload
	}
	return counterIncrement{Delta: body[0]}, nil
}

func TestDefaultTableRoundTrip(t *testing.T) {
	testlog.Start(t)
	table := DefaultTable()
	cases := []struct {
		name string
		in   Payload
	}{
		{"command", RawCommand{Name: "put", Data: []byte("k=v")}},
		{"query", RawQuery{Name: "get", Data: []byte("k"), Level: Sequential}},
		{"linearizable query", RawQuery{Name: "get", Level: Linearizable}},
		{"event", RawEvent{Name: "changed", Data: []byte{0x01}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := table.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			out, err := table.Unmarshal(b, tc.in.Kind())
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !Equal(tc.in, out) {
				t.Fatalf("round trip mismatch: in=%v out=%v", tc.in, out)
			}
		})
	}
}

func TestQueryKeepsConsistency(t *testing.T) {
	testlog.Start(t)
	table := DefaultTable()
	b, err := table.Marshal(RawQuery{Name: "get", Level: BoundedLinearizable})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p, err := table.Unmarshal(b, KindQuery)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	q, ok := p.(Query)
	if !ok {
		t.Fatalf("expected Query, got %T", p)
	}
	if q.Consistency() != BoundedLinearizable || !q.Consistency().RequiresLeader() {
		t.Fatalf("unexpected consistency: %s", q.Consistency())
	}
	if Sequential.RequiresLeader() {
		t.Fatalf("sequential must not require the leader")
	}
}

func TestUnknownTypeIsFatal(t *testing.T) {
	testlog.Start(t)
	b := tlv.EncodeField(tlv.Field{ID: 999, Type: uint8(KindCommand), Value: []byte{1}})
	_, err := DefaultTable().Unmarshal(b, KindCommand)
	if !errors.Is(err, ErrUnknownPayloadType) {
		t.Fatalf("expected ErrUnknownPayloadType, got %v", err)
	}
	if _, err := DefaultTable().Marshal(counterIncrement{Delta: 1}); !errors.Is(err, ErrUnknownPayloadType) {
		t.Fatalf("expected marshal to reject unregistered type, got %v", err)
	}
}

func TestKindMismatchIsFatal(t *testing.T) {
	testlog.Start(t)
	table := DefaultTable()
	b, err := table.Marshal(RawCommand{Name: "put"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := table.Unmarshal(b, KindQuery); !errors.Is(err, ErrPayloadKindMismatch) {
		t.Fatalf("expected ErrPayloadKindMismatch, got %v", err)
	}
}

func TestCustomEntries(t *testing.T) {
	testlog.Start(t)
	table, err := DefaultTable().With(Entry{
		TypeID: FirstUserTypeID,
		Kind:   KindCommand,
		Name:   "counter.increment",
		Decode: decodeCounterIncrement,
	})
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	if len(table.Entries()) != 4 {
		t.Fatalf("unexpected entry count: %d", len(table.Entries()))
	}
	b, err := table.Marshal(counterIncrement{Delta: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p, err := table.Unmarshal(b, KindCommand)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.(counterIncrement).Delta != 3 {
		t.Fatalf("unexpected payload: %+v", p)
	}

	_, err = table.With(Entry{TypeID: FirstUserTypeID, Kind: KindEvent, Name: "clash", Decode: decodeCounterIncrement})
	if !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("expected ErrDuplicateType, got %v", err)
	}
	_, err = NewTable(Entry{TypeID: 0, Kind: KindEvent, Name: "zero", Decode: decodeCounterIncrement})
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestMalformedBodiesRejected(t *testing.T) {
	testlog.Start(t)
	table := DefaultTable()
	noLevel := tlv.EncodeFields([]tlv.Field{tlv.String(bodyFieldName, "get"), tlv.Bytes(bodyFieldData, nil)})
	if _, err := table.Resolve(TypeRawQuery, KindQuery, noLevel, KindQuery); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing level, got %v", err)
	}
	badLevel := append(noLevel, tlv.EncodeField(tlv.U8(bodyFieldLevel, 9))...)
	if _, err := table.Resolve(TypeRawQuery, KindQuery, badLevel, KindQuery); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for bad level, got %v", err)
	}
	if _, err := table.Resolve(TypeRawCommand, KindCommand, []byte{0, 1}, KindCommand); !errors.Is(err, tlv.ErrShortFieldHeader) {
		t.Fatalf("expected short header error, got %v", err)
	}
	if _, err := (RawCommand{}).MarshalBinary(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected unnamed command rejection, got %v", err)
	}
}

func TestEqualIsStructural(t *testing.T) {
	testlog.Start(t)
	a := RawCommand{Name: "put", Data: nil}
	b := RawCommand{Name: "put", Data: []byte{}}
	if !Equal(a, b) {
		t.Fatalf("nil and empty data should encode identically")
	}
	if Equal(a, RawCommand{Name: "put", Data: []byte{1}}) {
		t.Fatalf("different data compared equal")
	}
	if Equal(RawCommand{Name: "x"}, RawEvent{Name: "x"}) {
		t.Fatalf("different kinds compared equal")
	}
	if !Equal(nil, nil) || Equal(a, nil) {
		t.Fatalf("unexpected nil handling")
	}
	level, err := ParseConsistency("linearizable")
	if err != nil || level != Linearizable {
		t.Fatalf("parse consistency: %v %v", level, err)
	}
}
