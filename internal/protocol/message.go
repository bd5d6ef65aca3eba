package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/schema"
)

// MessageType is the stable discriminant of a message. It is written as the
// frame envelope tag and selects the body binding on decode.
type MessageType uint32

const (
	TypeConnectRequest    = MessageType(schema.MsgConnectRequest)
	TypeRegisterRequest   = MessageType(schema.MsgRegisterRequest)
	TypeKeepAliveRequest  = MessageType(schema.MsgKeepAliveRequest)
	TypeUnregisterRequest = MessageType(schema.MsgUnregisterRequest)
	TypeCommandRequest    = MessageType(schema.MsgCommandRequest)
	TypeQueryRequest      = MessageType(schema.MsgQueryRequest)
	TypePublishRequest    = MessageType(schema.MsgPublishRequest)
	TypeResetRequest      = MessageType(schema.MsgResetRequest)

	TypeConnectResponse    = MessageType(schema.MsgConnectResponse)
	TypeRegisterResponse   = MessageType(schema.MsgRegisterResponse)
	TypeKeepAliveResponse  = MessageType(schema.MsgKeepAliveResponse)
	TypeUnregisterResponse = MessageType(schema.MsgUnregisterResponse)
	TypeCommandResponse    = MessageType(schema.MsgCommandResponse)
	TypeQueryResponse      = MessageType(schema.MsgQueryResponse)
	TypePublishResponse    = MessageType(schema.MsgPublishResponse)
)

func (t MessageType) String() string {
	return schema.Name(uint32(t))
}

func (t MessageType) IsResponse() bool {
	return schema.IsResponse(uint32(t))
}

// Message is any request or response. Implementations are immutable values.
type Message interface {
	Type() MessageType
	ID() int64
}

// Request is a client-to-server (or, for Publish, server-to-client) message.
type Request interface {
	Message
	isRequest()
}

// Response answers a request with the same correlation id.
type Response interface {
	Message
	Status() Status
	// Code is ErrNone iff Status is StatusOK.
	Code() CopycatError
	// Err is nil for OK responses and the failure code otherwise.
	Err() error
	isResponse()
}

// SessionRequest is a request bound to a registered session.
type SessionRequest interface {
	Request
	Session() int64
}

// OperationRequest carries a command or query under a session sequence.
type OperationRequest interface {
	SessionRequest
	Sequence() int64
	Operation() operation.Payload
	// Key is the retry-stable identity of the operation.
	Key() OperationKey
}

type RequestHeader struct {
	id int64
}

func (h RequestHeader) ID() int64 { return h.id }
func (RequestHeader) isRequest()  {}

type SessionHeader struct {
	RequestHeader
	session int64
}

func (h SessionHeader) Session() int64 { return h.session }

type OperationHeader struct {
	SessionHeader
	sequence int64
}

func (h OperationHeader) Sequence() int64 { return h.sequence }

type ResponseHeader struct {
	id     int64
	status Status
	code   CopycatError
}

func (h ResponseHeader) ID() int64          { return h.id }
func (h ResponseHeader) Status() Status     { return h.status }
func (h ResponseHeader) Code() CopycatError { return h.code }
func (ResponseHeader) isResponse()          {}

func (h ResponseHeader) Err() error {
	if h.status == StatusOK {
		return nil
	}
	return h.code
}

func (h ResponseHeader) describe() string {
	if h.status == StatusOK {
		return fmt.Sprintf("id=%d, status=%s", h.id, h.status)
	}
	return fmt.Sprintf("id=%d, status=%s, error=%s", h.id, h.status, strings.TrimPrefix(h.code.Error(), "copycat: "))
}

// Address is a cluster member endpoint. The zero Address means "unknown".
type Address struct {
	Host string
	Port uint16
}

func (a Address) IsZero() bool {
	return a.Host == "" && a.Port == 0
}

func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

func ParseAddress(s string) (Address, error) {
	host, portRaw, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return Address{}, fmt.Errorf("protocol: parse address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portRaw, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("protocol: parse port %q: %w", portRaw, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("protocol: address %q has no host", s)
	}
	return Address{Host: host, Port: uint16(port)}, nil
}

func copyAddresses(in []Address) []Address {
	out := make([]Address, len(in))
	copy(out, in)
	return out
}
