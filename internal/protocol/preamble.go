package protocol

import (
	"github.com/pkg/errors"

	"github.com/danmuck/copycatwire/internal/protocol/frame"
	"github.com/danmuck/copycatwire/internal/protocol/wire"
)

// Preamble is the fixed-width prefix of a message body. It can be read
// without resolving any operation payload, so a runtime can route or reject
// a message before paying for a full decode.
type Preamble struct {
	Type MessageType
	ID   int64

	HasSession bool
	Session    int64

	HasSequence bool
	Sequence    int64

	HasIndex bool
	Index    int64

	// Status and Code are set for responses only.
	Status Status
	Code   CopycatError
}

type preambleLayout int

const (
	layoutID preambleLayout = iota
	layoutSession
	layoutSequence
	layoutIndexed
	layoutResponse
)

// ReadPreamble decodes the envelope and fixed prefix of one framed message.
// Payload bytes are not inspected.
func (c *Codec) ReadPreamble(b []byte) (Preamble, error) {
	f, err := frame.ParseFrame(b, c.limits)
	if err != nil {
		return Preamble{}, errors.Wrap(err, "preamble frame")
	}
	return ReadBodyPreamble(MessageType(f.Header.MessageType), f.Payload)
}

// ReadBodyPreamble is ReadPreamble for an unframed body of type t.
func ReadBodyPreamble(t MessageType, body []byte) (Preamble, error) {
	b, ok := bindings[t]
	if !ok {
		return Preamble{}, errors.Wrapf(ErrUnknownMessageType, "preamble 0x%02x", uint32(t))
	}
	r := wire.NewReader(body)
	p := Preamble{Type: t, ID: r.Int64()}
	switch b.preamble {
	case layoutSession:
		p.HasSession, p.Session = true, r.Int64()
	case layoutSequence:
		p.HasSession, p.Session = true, r.Int64()
		p.HasSequence, p.Sequence = true, r.Int64()
	case layoutIndexed:
		p.HasSession, p.Session = true, r.Int64()
		p.HasSequence, p.Sequence = true, r.Int64()
		p.HasIndex, p.Index = true, r.Int64()
	case layoutResponse:
		p.Status = Status(r.Uint8())
		p.Code = CopycatError(r.Uint8())
	}
	if err := r.Err(); err != nil {
		return Preamble{}, errors.Wrapf(err, "preamble %s", t)
	}
	if b.preamble == layoutResponse && !p.Status.Valid() {
		return Preamble{}, errors.Wrapf(ErrUnknownStatus, "preamble %s", t)
	}
	return p, nil
}
