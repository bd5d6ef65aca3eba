package protocol

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/copycatwire/internal/protocol/frame"
	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/wire"
)

// Recorder receives codec activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveEncode(messageType string, bytes int)
	ObserveDecode(messageType string, bytes int)
	ObserveDecodeFailure(messageType string, reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEncode(string, int)           {}
func (nopRecorder) ObserveDecode(string, int)           {}
func (nopRecorder) ObserveDecodeFailure(string, string) {}

// Codec maps messages to and from framed bytes. A Codec is immutable and
// safe for concurrent use; it holds no per-message state.
type Codec struct {
	table   *operation.Table
	limits  frame.Limits
	logger  zerolog.Logger
	metrics Recorder
}

type Option func(*Codec)

func WithLimits(limits frame.Limits) Option {
	return func(c *Codec) {
		c.limits = limits
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Codec) {
		if r != nil {
			c.metrics = r
		}
	}
}

// NewCodec builds a codec over table. A nil table means
// operation.DefaultTable.
func NewCodec(table *operation.Table, opts ...Option) *Codec {
	if table == nil {
		table = operation.DefaultTable()
	}
	c := &Codec{
		table:   table,
		limits:  frame.DefaultLimits(),
		logger:  log.Logger.With().Str("component", "codec").Logger(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Table() *operation.Table {
	return c.table
}

// EncodeBody writes only the type-specific body of m, for transports that
// carry the message type in their own framing.
func (c *Codec) EncodeBody(m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	b, ok := bindings[m.Type()]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMessageType, "encode 0x%02x", uint32(m.Type()))
	}
	w := wire.NewWriter(64)
	if err := b.encode(w, m, c.table); err != nil {
		return nil, errors.Wrapf(err, "encode %s", m.Type())
	}
	return w.Bytes(), nil
}

// DecodeBody rebuilds a message of type t from its body bytes.
func (c *Codec) DecodeBody(t MessageType, body []byte) (Message, error) {
	b, ok := bindings[t]
	if !ok {
		return nil, c.decodeFailed(t, "unknown_type", errors.Wrapf(ErrUnknownMessageType, "decode 0x%02x", uint32(t)))
	}
	m, err := b.decode(wire.NewReader(body), c.table)
	if err != nil {
		return nil, c.decodeFailed(t, "body", errors.Wrapf(err, "decode %s", t))
	}
	return m, nil
}

// Marshal returns the framed wire form of m.
func (c *Codec) Marshal(m Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.WriteMessage(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one framed message from b.
func (c *Codec) Unmarshal(b []byte) (Message, error) {
	f, err := frame.ParseFrame(b, c.limits)
	if err != nil {
		return nil, c.decodeFailed(0, "frame", errors.Wrap(err, "decode frame"))
	}
	return c.decodeFrame(f)
}

// WriteMessage frames m and writes it to w.
func (c *Codec) WriteMessage(w io.Writer, m Message) error {
	body, err := c.EncodeBody(m)
	if err != nil {
		return err
	}
	var flags uint32
	if m.Type().IsResponse() {
		flags |= frame.FlagIsResponse
	}
	err = frame.WriteFrame(w, frame.Frame{
		Header:  frame.Header{MessageType: uint32(m.Type()), Flags: flags},
		Payload: body,
	}, c.limits)
	if err != nil {
		return errors.Wrapf(err, "write %s", m.Type())
	}
	c.metrics.ObserveEncode(m.Type().String(), int(frame.FixedHeaderLen)+len(body))
	c.logger.Trace().Str("type", m.Type().String()).Int64("id", m.ID()).Int("bytes", len(body)).Msg("encoded")
	return nil
}

// ReadMessage reads and decodes one framed message from r. It returns
// io.EOF unwrapped when r ends between messages.
func (c *Codec) ReadMessage(r io.Reader) (Message, error) {
	f, err := frame.ReadFrame(r, c.limits)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, c.decodeFailed(0, "frame", errors.Wrap(err, "read frame"))
	}
	return c.decodeFrame(f)
}

func (c *Codec) decodeFrame(f frame.Frame) (Message, error) {
	t := MessageType(f.Header.MessageType)
	if _, ok := bindings[t]; !ok {
		return nil, c.decodeFailed(t, "unknown_type", errors.Wrapf(ErrUnknownMessageType, "decode 0x%02x", uint32(t)))
	}
	if (f.Header.Flags&frame.FlagIsResponse != 0) != t.IsResponse() {
		return nil, c.decodeFailed(t, "flags", errors.Wrapf(ErrResponseFlag, "decode %s", t))
	}
	m, err := c.DecodeBody(t, f.Payload)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveDecode(t.String(), int(frame.FixedHeaderLen)+len(f.Payload))
	c.logger.Trace().Str("type", t.String()).Int64("id", m.ID()).Int("bytes", len(f.Payload)).Msg("decoded")
	return m, nil
}

func (c *Codec) decodeFailed(t MessageType, reason string, err error) error {
	name := "frame"
	if t != 0 {
		name = t.String()
	}
	c.metrics.ObserveDecodeFailure(name, reason)
	c.logger.Debug().Str("type", name).Str("reason", reason).Err(err).Msg("decode failed")
	return err
}
