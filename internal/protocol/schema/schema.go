package schema

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Message type IDs. These are the envelope tags and never change meaning.
const (
	MsgConnectRequest    uint32 = 0x01
	MsgRegisterRequest   uint32 = 0x02
	MsgKeepAliveRequest  uint32 = 0x03
	MsgUnregisterRequest uint32 = 0x04
	MsgCommandRequest    uint32 = 0x05
	MsgQueryRequest      uint32 = 0x06
	MsgPublishRequest    uint32 = 0x07
	MsgResetRequest      uint32 = 0x08

	MsgConnectResponse    uint32 = 0x11
	MsgRegisterResponse   uint32 = 0x12
	MsgKeepAliveResponse  uint32 = 0x13
	MsgUnregisterResponse uint32 = 0x14
	MsgCommandResponse    uint32 = 0x15
	MsgQueryResponse      uint32 = 0x16
	MsgPublishResponse    uint32 = 0x17
)

// Field names reported by validation errors.
const (
	FieldID              = "id"
	FieldClient          = "client"
	FieldTimeout         = "timeout"
	FieldSession         = "session"
	FieldSequence        = "sequence"
	FieldCommandSequence = "command_sequence"
	FieldIndex           = "index"
	FieldEventIndex      = "event_index"
	FieldPreviousIndex   = "previous_index"
	FieldCommand         = "command"
	FieldQuery           = "query"
	FieldEvents          = "events"
	FieldStatus          = "status"
	FieldError           = "error"
	FieldLeader          = "leader"
	FieldMembers         = "members"
)

var (
	ErrInvalidArgument = errors.New("schema: invalid argument")
	ErrMissingField    = errors.New("schema: missing required field")
)

var names = map[uint32]string{
	MsgConnectRequest:     "connect.request",
	MsgRegisterRequest:    "register.request",
	MsgKeepAliveRequest:   "keepalive.request",
	MsgUnregisterRequest:  "unregister.request",
	MsgCommandRequest:     "command.request",
	MsgQueryRequest:       "query.request",
	MsgPublishRequest:     "publish.request",
	MsgResetRequest:       "reset.request",
	MsgConnectResponse:    "connect.response",
	MsgRegisterResponse:   "register.response",
	MsgKeepAliveResponse:  "keepalive.response",
	MsgUnregisterResponse: "unregister.response",
	MsgCommandResponse:    "command.response",
	MsgQueryResponse:      "query.response",
	MsgPublishResponse:    "publish.response",
}

// Known reports whether messageType is a registered envelope tag.
func Known(messageType uint32) bool {
	_, ok := names[messageType]
	return ok
}

// Name returns the stable display name of messageType.
func Name(messageType uint32) string {
	if name, ok := names[messageType]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", messageType)
}

// IsResponse reports whether messageType is in the response range.
func IsResponse(messageType uint32) bool {
	return messageType >= MsgConnectResponse && messageType <= MsgPublishResponse
}

type ValidationError struct {
	MessageType uint32
	Field       string
	Reason      string
	Err         error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %s: %s", Name(e.MessageType), e.Reason)
	}
	return fmt.Sprintf("schema: %s field=%s: %s", Name(e.MessageType), e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

func invalid(messageType uint32, field, reason string, cause error) error {
	log.Debug().
		Str("message_type", Name(messageType)).
		Str("field", field).
		Str("reason", reason).
		Msg("schema validation failed")
	return ValidationError{MessageType: messageType, Field: field, Reason: reason, Err: cause}
}

// NonNegative rejects v < 0.
func NonNegative(messageType uint32, field string, v int64) error {
	if v < 0 {
		return invalid(messageType, field, fmt.Sprintf("cannot be less than 0 (got %d)", v), ErrInvalidArgument)
	}
	return nil
}

// Sequence rejects anything below 1; session sequences start at 1.
func Sequence(messageType uint32, field string, v int64) error {
	if v < 0 {
		return invalid(messageType, field, fmt.Sprintf("cannot be less than 0 (got %d)", v), ErrInvalidArgument)
	}
	if v == 0 {
		return invalid(messageType, field, "must start at 1", ErrInvalidArgument)
	}
	return nil
}

// Required rejects an absent value.
func Required(messageType uint32, field string, present bool) error {
	if !present {
		return invalid(messageType, field, "required", ErrMissingField)
	}
	return nil
}

// Argument rejects a value that fails a type-specific rule.
func Argument(messageType uint32, field string, ok bool, reason string) error {
	if !ok {
		return invalid(messageType, field, reason, ErrInvalidArgument)
	}
	return nil
}
