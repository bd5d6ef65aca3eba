package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
	ErrDuplicateField   = errors.New("tlv: duplicate field id")
)

// Type IDs for payload body fields.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
)

// Field is one decoded TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) []byte {
	buf := make([]byte, HeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

// DecodeField reads the first field in b and returns it with the number of
// bytes consumed.
func DecodeField(b []byte) (Field, int, error) {
	if len(b) < HeaderLen {
		return Field{}, 0, ErrShortFieldHeader
	}
	id := binary.BigEndian.Uint16(b[0:2])
	typeID := b[2]
	l := binary.BigEndian.Uint32(b[3:7])
	if uint64(len(b)-HeaderLen) < uint64(l) {
		return Field{}, 0, ErrShortFieldValue
	}
	val := make([]byte, l)
	copy(val, b[HeaderLen:HeaderLen+int(l)])
	return Field{ID: id, Type: typeID, Value: val}, HeaderLen + int(l), nil
}

func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	for i := 0; i < len(payload); {
		f, n, err := DecodeField(payload[i:])
		if err != nil {
			return nil, err
		}
		i += n
		fields = append(fields, f)
	}
	return fields, nil
}

// DecodeUniqueFields is DecodeFields for bodies where a field id may appear
// at most once.
func DecodeUniqueFields(payload []byte) ([]Field, error) {
	fields, err := DecodeFields(payload)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint16]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateField, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return fields, nil
}

func EncodeFields(fields []Field) []byte {
	out := make([]byte, 0)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("tlv: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}

func String(id uint16, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

func Bytes(id uint16, v []byte) Field {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Field{ID: id, Type: TypeBytes, Value: buf}
}

func U8(id uint16, v uint8) Field {
	return Field{ID: id, Type: TypeU8, Value: []byte{v}}
}

func U8FromBytes(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("tlv: invalid u8 length: %d", len(b))
	}
	return b[0], nil
}

func U32FromBytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("tlv: invalid u32 length: %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}
