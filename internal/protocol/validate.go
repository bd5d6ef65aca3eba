package protocol

import (
	"fmt"

	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/schema"
)

// validator runs field checks in declaration order and keeps only the first
// failure; later checks are skipped once one fails.
type validator struct {
	t   MessageType
	err error
}

func newValidator(t MessageType) *validator {
	return &validator{t: t}
}

func (v *validator) nonNegative(field string, n int64) {
	if v.err == nil {
		v.err = schema.NonNegative(uint32(v.t), field, n)
	}
}

func (v *validator) sequence(field string, n int64) {
	if v.err == nil {
		v.err = schema.Sequence(uint32(v.t), field, n)
	}
}

func (v *validator) required(field string, present bool) {
	if v.err == nil {
		v.err = schema.Required(uint32(v.t), field, present)
	}
}

func (v *validator) argument(field string, ok bool, reason string) {
	if v.err == nil {
		v.err = schema.Argument(uint32(v.t), field, ok, reason)
	}
}

// payload checks presence and kind of p and returns its digest.
func (v *validator) payload(field string, p operation.Payload, want operation.Kind) string {
	v.required(field, p != nil)
	if v.err != nil {
		return ""
	}
	v.argument(field, p.Kind() == want, fmt.Sprintf("expected %s payload, got %s", want, p.Kind()))
	if v.err != nil {
		return ""
	}
	digest, err := operation.Digest(p)
	if err != nil {
		v.argument(field, false, err.Error())
		return ""
	}
	return digest
}

func (v *validator) status(status Status, code CopycatError) {
	v.argument(schema.FieldStatus, status.Valid(), fmt.Sprintf("unknown status %d", uint8(status)))
	if v.err != nil {
		return
	}
	switch status {
	case StatusOK:
		v.argument(schema.FieldError, code == ErrNone, "must be empty when status is OK")
	case StatusError:
		v.required(schema.FieldError, code != ErrNone)
		v.argument(schema.FieldError, code.Known(), fmt.Sprintf("unknown error code %d", uint8(code)))
	}
}

func (v *validator) addresses(leader Address, members []Address) {
	v.argument(schema.FieldLeader, leader.IsZero() || leader.Host != "", "leader port set without host")
	for i, m := range members {
		v.argument(schema.FieldMembers, m.Host != "", fmt.Sprintf("members[%d] missing host", i))
	}
}
