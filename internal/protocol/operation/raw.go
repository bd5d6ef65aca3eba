package operation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/danmuck/copycatwire/internal/protocol/tlv"
)

// Tags of the built-in payloads. Application tags should start above
// FirstUserTypeID.
const (
	TypeRawCommand uint16 = 1
	TypeRawQuery   uint16 = 2
	TypeRawEvent   uint16 = 3

	FirstUserTypeID uint16 = 256
)

const (
	bodyFieldName  uint16 = 1
	bodyFieldData  uint16 = 2
	bodyFieldLevel uint16 = 3
)

// RawCommand is a named state-machine mutation with an opaque argument.
type RawCommand struct {
	Name string
	Data []byte
}

func (RawCommand) TypeID() uint16 { return TypeRawCommand }
func (RawCommand) Kind() Kind     { return KindCommand }

func (c RawCommand) MarshalBinary() ([]byte, error) {
	return encodeNamed(c.Name, c.Data)
}

func (c RawCommand) Clone() Payload {
	return RawCommand{Name: c.Name, Data: bytes.Clone(c.Data)}
}

func (c RawCommand) String() string {
	return fmt.Sprintf("RawCommand[name=%s, data=%d bytes]", c.Name, len(c.Data))
}

// RawQuery is a named read with an opaque argument and a consistency level.
type RawQuery struct {
	Name  string
	Data  []byte
	Level Consistency
}

func (RawQuery) TypeID() uint16 { return TypeRawQuery }
func (RawQuery) Kind() Kind     { return KindQuery }

func (q RawQuery) Consistency() Consistency { return q.Level }

func (q RawQuery) MarshalBinary() ([]byte, error) {
	if !q.Level.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, q.Level)
	}
	body, err := encodeNamed(q.Name, q.Data)
	if err != nil {
		return nil, err
	}
	return append(body, tlv.EncodeField(tlv.U8(bodyFieldLevel, uint8(q.Level)))...), nil
}

func (q RawQuery) Clone() Payload {
	return RawQuery{Name: q.Name, Data: bytes.Clone(q.Data), Level: q.Level}
}

func (q RawQuery) String() string {
	return fmt.Sprintf("RawQuery[name=%s, consistency=%s, data=%d bytes]", q.Name, q.Level, len(q.Data))
}

// RawEvent is a named session event published by the cluster.
type RawEvent struct {
	Name string
	Data []byte
}

func (RawEvent) TypeID() uint16 { return TypeRawEvent }
func (RawEvent) Kind() Kind     { return KindEvent }

func (e RawEvent) MarshalBinary() ([]byte, error) {
	return encodeNamed(e.Name, e.Data)
}

func (e RawEvent) Clone() Payload {
	return RawEvent{Name: e.Name, Data: bytes.Clone(e.Data)}
}

func (e RawEvent) String() string {
	return fmt.Sprintf("RawEvent[name=%s, data=%d bytes]", e.Name, len(e.Data))
}

// DefaultTable returns a table holding only the built-in payloads.
func DefaultTable() *Table {
	t, err := NewTable(BuiltinEntries()...)
	if err != nil {
		panic(err)
	}
	return t
}

func BuiltinEntries() []Entry {
	return []Entry{
		{TypeID: TypeRawCommand, Kind: KindCommand, Name: "raw.command", Decode: decodeRawCommand},
		{TypeID: TypeRawQuery, Kind: KindQuery, Name: "raw.query", Decode: decodeRawQuery},
		{TypeID: TypeRawEvent, Kind: KindEvent, Name: "raw.event", Decode: decodeRawEvent},
	}
}

func encodeNamed(name string, data []byte) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidPayload)
	}
	return tlv.EncodeFields([]tlv.Field{
		tlv.String(bodyFieldName, name),
		tlv.Bytes(bodyFieldData, data),
	}), nil
}

func decodeNamed(body []byte) (string, []byte, []tlv.Field, error) {
	fields, err := tlv.DecodeUniqueFields(body)
	if err != nil {
		return "", nil, nil, err
	}
	nameField, ok := tlv.GetField(fields, bodyFieldName)
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: missing name", ErrInvalidPayload)
	}
	if err := tlv.MustType(nameField, tlv.TypeString); err != nil {
		return "", nil, nil, err
	}
	if strings.TrimSpace(string(nameField.Value)) == "" {
		return "", nil, nil, fmt.Errorf("%w: empty name", ErrInvalidPayload)
	}
	dataField, ok := tlv.GetField(fields, bodyFieldData)
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := tlv.MustType(dataField, tlv.TypeBytes); err != nil {
		return "", nil, nil, err
	}
	return string(nameField.Value), dataField.Value, fields, nil
}

func decodeRawCommand(body []byte) (Payload, error) {
	name, data, fields, err := decodeNamed(body)
	if err != nil {
		return nil, err
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: unexpected fields", ErrInvalidPayload)
	}
	return RawCommand{Name: name, Data: data}, nil
}

func decodeRawQuery(body []byte) (Payload, error) {
	name, data, fields, err := decodeNamed(body)
	if err != nil {
		return nil, err
	}
	levelField, ok := tlv.GetField(fields, bodyFieldLevel)
	if !ok || len(fields) != 3 {
		return nil, fmt.Errorf("%w: missing consistency", ErrInvalidPayload)
	}
	if err := tlv.MustType(levelField, tlv.TypeU8); err != nil {
		return nil, err
	}
	v, err := tlv.U8FromBytes(levelField.Value)
	if err != nil {
		return nil, err
	}
	level := Consistency(v)
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, level)
	}
	return RawQuery{Name: name, Data: data, Level: level}, nil
}

func decodeRawEvent(body []byte) (Payload, error) {
	name, data, fields, err := decodeNamed(body)
	if err != nil {
		return nil, err
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: unexpected fields", ErrInvalidPayload)
	}
	return RawEvent{Name: name, Data: data}, nil
}
