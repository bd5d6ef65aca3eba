package protocol

import "errors"

var (
	ErrUnknownMessageType  = errors.New("protocol: unknown message type")
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
	ErrResponseFlag        = errors.New("protocol: response flag does not match message type")
	ErrNilMessage          = errors.New("protocol: nil message")
	ErrUnknownStatus       = errors.New("protocol: unknown status")
	ErrUnknownErrorCode    = errors.New("protocol: unknown error code")
)
