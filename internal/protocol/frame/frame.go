package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic          uint32 = 0xC0CA7001
	Version        uint16 = 1
	FixedHeaderLen uint16 = 24
	FlagIsResponse uint32 = 0x01
)

var (
	ErrShortHeader       = errors.New("frame: short fixed header")
	ErrInvalidMagic      = errors.New("frame: invalid magic")
	ErrUnsupportedVer    = errors.New("frame: unsupported version")
	ErrHeaderLenMismatch = errors.New("frame: header_len does not match fixed header")
	ErrPayloadTooLarge   = errors.New("frame: payload too large")
	ErrShortPayload      = errors.New("frame: short payload")
)

// Header is the fixed envelope header. MessageType selects the body decoder.
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// ReadFrame reads one frame from r. It returns io.EOF only when r ends
// cleanly on a frame boundary.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if err := checkHeader(h, limits); err != nil {
		return Frame{}, err
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return Frame{}, ErrShortPayload
			}
			return Frame{}, err
		}
	}

	return Frame{Header: h, Payload: payload}, nil
}

// ParseFrame decodes one frame held entirely in b. Bytes after the frame are
// rejected so a buffer always maps to exactly one message.
func ParseFrame(b []byte, limits Limits) (Frame, error) {
	if len(b) < int(FixedHeaderLen) {
		return Frame{}, ErrShortHeader
	}
	h, err := DecodeHeader(b[:FixedHeaderLen])
	if err != nil {
		return Frame{}, err
	}
	if err := checkHeader(h, limits); err != nil {
		return Frame{}, err
	}
	body := b[FixedHeaderLen:]
	if uint64(len(body)) < h.PayloadLen {
		return Frame{}, ErrShortPayload
	}
	if uint64(len(body)) > h.PayloadLen {
		return Frame{}, fmt.Errorf("frame: %d trailing bytes after payload", uint64(len(body))-h.PayloadLen)
	}
	payload := make([]byte, len(body))
	copy(payload, body)
	return Frame{Header: h, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	payloadLen := uint64(len(f.Payload))
	if payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.HeaderLen = FixedHeaderLen
	h.PayloadLen = payloadLen

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if payloadLen > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func checkHeader(h Header, limits Limits) error {
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version != Version {
		return ErrUnsupportedVer
	}
	if h.HeaderLen != FixedHeaderLen {
		return ErrHeaderLenMismatch
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint32(buf[8:12], h.MessageType)
	binary.BigEndian.PutUint32(buf[12:16], h.Flags)
	binary.BigEndian.PutUint64(buf[16:24], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     binary.BigEndian.Uint16(b[4:6]),
		HeaderLen:   binary.BigEndian.Uint16(b[6:8]),
		MessageType: binary.BigEndian.Uint32(b[8:12]),
		Flags:       binary.BigEndian.Uint32(b[12:16]),
		PayloadLen:  binary.BigEndian.Uint64(b[16:24]),
	}, nil
}
