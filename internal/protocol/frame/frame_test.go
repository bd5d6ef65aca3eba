package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	payload := []byte{0, 0, 0, 0, 0, 0, 0, 42}
	in := Frame{
		Header:  Header{MessageType: 0x05, Flags: FlagIsResponse},
		Payload: payload,
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != int(FixedHeaderLen)+len(payload) {
		t.Fatalf("unexpected frame size: %d", buf.Len())
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Magic != Magic || out.Header.Version != Version {
		t.Fatalf("envelope not stamped: %+v", out.Header)
	}
	if out.Header.MessageType != 0x05 || out.Header.Flags != FlagIsResponse {
		t.Fatalf("header mismatch: %+v", out.Header)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	if _, err := ReadFrame(bytes.NewReader(nil), DefaultLimits()); err != io.EOF {
		t.Fatalf("expected io.EOF at a frame boundary, got %v", err)
	}
}

func TestReadFrameInvalidMagic(t *testing.T) {
	h := Header{Magic: 1, Version: Version, HeaderLen: FixedHeaderLen, MessageType: 1}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestReadFrameUnsupportedVersion(t *testing.T) {
	h := Header{Magic: Magic, Version: 9, HeaderLen: FixedHeaderLen, MessageType: 1}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrUnsupportedVer) {
		t.Fatalf("expected ErrUnsupportedVer, got %v", err)
	}
}

func TestReadFrameHeaderLenMismatch(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: 8, MessageType: 1}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenMismatch) {
		t.Fatalf("expected ErrHeaderLenMismatch, got %v", err)
	}
}

func TestReadFramePayloadLimit(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, MessageType: 1, PayloadLen: 64}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), Limits{MaxPayloadBytes: 16})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	err = WriteFrame(&bytes.Buffer{}, Frame{Payload: make([]byte, 17)}, Limits{MaxPayloadBytes: 16})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, MessageType: 1, PayloadLen: 8}
	buf := append(EncodeHeader(h), 1, 2, 3)
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

func TestParseFrameRejectsTrailingBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{Header: Header{MessageType: 2}, Payload: []byte{7}}, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	f, err := ParseFrame(buf.Bytes(), DefaultLimits())
	if err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	if f.Header.MessageType != 2 || !bytes.Equal(f.Payload, []byte{7}) {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if _, err := ParseFrame(append(buf.Bytes(), 0xff), DefaultLimits()); err == nil {
		t.Fatalf("expected trailing byte error")
	}
	if _, err := ParseFrame(buf.Bytes()[:10], DefaultLimits()); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}
