package protocol

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/schema"
	"github.com/danmuck/copycatwire/internal/testutil/testlog"
)

func putCommand() operation.RawCommand {
	return operation.RawCommand{Name: "put", Data: []byte("k=v")}
}

func getQuery(level operation.Consistency) operation.RawQuery {
	return operation.RawQuery{Name: "get", Data: []byte("k"), Level: level}
}

func changeEvent(n byte) operation.RawEvent {
	return operation.RawEvent{Name: "changed", Data: []byte{n}}
}

func requireValidation(t *testing.T, err error, sentinel error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error on %s", field)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
	var verr schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected schema.ValidationError, got %T", err)
	}
	if verr.Field != field {
		t.Fatalf("expected field=%s, got %s (%v)", field, verr.Field, err)
	}
}

func TestNegativeCountersRejected(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name  string
		field string
		build func() error
	}{
		{"connect id", schema.FieldID, func() error { _, err := NewConnectRequest(-1, "c"); return err }},
		{"register timeout", schema.FieldTimeout, func() error { _, err := NewRegisterRequest(1, "c", -5); return err }},
		{"keepalive session", schema.FieldSession, func() error { _, err := NewKeepAliveRequest(1, -1, 0, 0); return err }},
		{"keepalive command sequence", schema.FieldCommandSequence, func() error { _, err := NewKeepAliveRequest(1, 1, -1, 0); return err }},
		{"keepalive event index", schema.FieldEventIndex, func() error { _, err := NewKeepAliveRequest(1, 1, 0, -1); return err }},
		{"unregister session", schema.FieldSession, func() error { _, err := NewUnregisterRequest(1, -1); return err }},
		{"command session", schema.FieldSession, func() error { _, err := NewCommandRequest(1, -1, 1, putCommand()); return err }},
		{"command sequence", schema.FieldSequence, func() error { _, err := NewCommandRequest(1, 1, -1, putCommand()); return err }},
		{"query index", schema.FieldIndex, func() error {
			_, err := NewQueryRequest(1, 1, 1, -1, getQuery(operation.Linearizable))
			return err
		}},
		{"publish event index", schema.FieldEventIndex, func() error {
			_, err := NewPublishRequest(1, 1, -1, 0, []operation.Payload{changeEvent(1)})
			return err
		}},
		{"reset index", schema.FieldIndex, func() error { _, err := NewResetRequest(1, 1, -1); return err }},
		{"publish response index", schema.FieldIndex, func() error { _, err := NewPublishResponse(1, StatusOK, ErrNone, -1); return err }},
		{"command response event index", schema.FieldEventIndex, func() error {
			_, err := NewCommandResponse(1, StatusOK, ErrNone, 0, -1, nil)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireValidation(t, tc.build(), schema.ErrInvalidArgument, tc.field)
		})
	}
}

func TestSequenceMustStartAtOne(t *testing.T) {
	testlog.Start(t)
	_, err := NewCommandRequest(1, 42, 0, putCommand())
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldSequence)
	if !strings.Contains(err.Error(), "must start at 1") {
		t.Fatalf("unexpected reason: %v", err)
	}

	_, err = NewQueryRequest(1, 42, 0, 0, getQuery(operation.Sequential))
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldSequence)

	if _, err := NewCommandRequest(1, 42, 1, putCommand()); err != nil {
		t.Fatalf("sequence 1: %v", err)
	}
}

func TestFirstFailureWins(t *testing.T) {
	testlog.Start(t)
	_, err := NewCommandRequest(-1, -1, 0, nil)
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldID)
}

func TestMissingFieldsRejected(t *testing.T) {
	testlog.Start(t)
	_, err := NewConnectRequest(1, "  ")
	requireValidation(t, err, schema.ErrMissingField, schema.FieldClient)

	_, err = NewCommandRequest(1, 1, 1, nil)
	requireValidation(t, err, schema.ErrMissingField, schema.FieldCommand)

	_, err = NewQueryRequest(1, 1, 1, 0, nil)
	requireValidation(t, err, schema.ErrMissingField, schema.FieldQuery)

	_, err = NewPublishRequest(1, 1, 3, 2, nil)
	requireValidation(t, err, schema.ErrMissingField, schema.FieldEvents)
}

func TestOperationKindEnforced(t *testing.T) {
	testlog.Start(t)
	_, err := NewCommandRequest(1, 1, 1, changeEvent(1))
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldCommand)

	_, err = NewPublishRequest(1, 1, 3, 2, []operation.Payload{changeEvent(1), putCommand()})
	requireValidation(t, err, schema.ErrInvalidArgument, "events[1]")

	_, err = NewQueryRequest(1, 1, 1, 0, getQuery(operation.Consistency(9)))
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldQuery)
}

func TestPublishIndexOrdering(t *testing.T) {
	testlog.Start(t)
	_, err := NewPublishRequest(1, 1, 4, 5, []operation.Payload{changeEvent(1)})
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldPreviousIndex)

	req, err := NewPublishRequest(1, 1, 5, 5, []operation.Payload{changeEvent(1)})
	if err != nil {
		t.Fatalf("equal indexes: %v", err)
	}
	if req.EventIndex() != 5 || req.PreviousIndex() != 5 {
		t.Fatalf("unexpected indexes: %s", req)
	}
}

func TestStatusErrorInvariant(t *testing.T) {
	testlog.Start(t)
	if _, err := NewUnregisterResponse(1, StatusOK, ErrNoLeader); err == nil {
		t.Fatalf("expected OK with error code to fail")
	} else {
		requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldError)
	}

	_, err := NewUnregisterResponse(1, StatusError, ErrNone)
	requireValidation(t, err, schema.ErrMissingField, schema.FieldError)

	_, err = NewUnregisterResponse(1, StatusError, CopycatError(99))
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldError)

	_, err = NewUnregisterResponse(1, Status(0), ErrNone)
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldStatus)

	ok, err := NewUnregisterResponse(1, StatusOK, ErrNone)
	if err != nil {
		t.Fatalf("ok response: %v", err)
	}
	if ok.Err() != nil {
		t.Fatalf("ok response carries err=%v", ok.Err())
	}

	failed, err := NewCommandResponse(2, StatusError, ErrUnknownSession, 0, 0, nil)
	if err != nil {
		t.Fatalf("error response: %v", err)
	}
	if !errors.Is(failed.Err(), ErrUnknownSession) {
		t.Fatalf("expected unknown session, got %v", failed.Err())
	}
	if failed.Code().Recovery() != RecoveryReregister {
		t.Fatalf("unexpected recovery=%s", failed.Code().Recovery())
	}
}

func TestRecoveryClassification(t *testing.T) {
	testlog.Start(t)
	cases := map[CopycatError]Recovery{
		ErrNoLeader:           RecoveryRetry,
		ErrQueryFailure:       RecoveryRetry,
		ErrCommandFailure:     RecoveryRetry,
		ErrRequestExpired:     RecoveryRetry,
		ErrIllegalMemberState: RecoveryRetry,
		ErrUnknownSession:     RecoveryReregister,
		ErrSessionExpired:     RecoveryReregister,
		ErrUnknownClient:      RecoveryReregister,
		ErrApplicationError:   RecoveryNone,
		ErrInternalError:      RecoveryNone,
		ErrConfigurationError: RecoveryNone,
	}
	for code, want := range cases {
		if !code.Known() {
			t.Fatalf("%d should be known", code)
		}
		if got := code.Recovery(); got != want {
			t.Fatalf("%s: got=%s want=%s", code.Error(), got, want)
		}
	}
	if ErrNone.Known() {
		t.Fatalf("ErrNone must not be a known failure")
	}
}

func TestConstructorsCopyInputs(t *testing.T) {
	testlog.Start(t)
	members := []Address{{Host: "10.0.0.1", Port: 5000}, {Host: "10.0.0.2", Port: 5000}}
	resp, err := NewConnectResponse(1, StatusOK, ErrNone, members[0], members)
	if err != nil {
		t.Fatalf("connect response: %v", err)
	}
	members[1].Host = "mutated"
	got := resp.Members()
	if got[1].Host != "10.0.0.2" {
		t.Fatalf("members aliased caller slice: %v", got)
	}
	got[0].Host = "mutated"
	if resp.Members()[0].Host != "10.0.0.1" {
		t.Fatalf("accessor exposed internal slice")
	}

	result := []byte("ok")
	cmd, err := NewCommandResponse(1, StatusOK, ErrNone, 10, 9, result)
	if err != nil {
		t.Fatalf("command response: %v", err)
	}
	result[0] = 'X'
	if string(cmd.Result()) != "ok" {
		t.Fatalf("result aliased caller slice: %q", cmd.Result())
	}
}

func TestOperationPayloadsDetachedFromCaller(t *testing.T) {
	testlog.Start(t)
	codec := NewCodec(nil)

	data := []byte("k=v")
	cmd, err := NewCommandRequest(1, 42, 1, operation.RawCommand{Name: "put", Data: data})
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	key := cmd.Key()
	data[0] = 'X'
	if got := cmd.Command().(operation.RawCommand); string(got.Data) != "k=v" {
		t.Fatalf("command aliased caller slice: %q", got.Data)
	}
	cmd.Command().(operation.RawCommand).Data[0] = 'Y'
	if got := cmd.Command().(operation.RawCommand); string(got.Data) != "k=v" {
		t.Fatalf("accessor exposed internal slice: %q", got.Data)
	}
	b, err := codec.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := codec.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !Equal(decoded.(CommandRequest), cmd) || decoded.(CommandRequest).Key() != key {
		t.Fatalf("wire form drifted from key: %v", decoded)
	}

	arg := []byte("k")
	query, err := NewQueryRequest(2, 42, 2, 5, operation.RawQuery{Name: "get", Data: arg, Level: operation.Sequential})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	arg[0] = 'X'
	if got := query.Query().(operation.RawQuery); string(got.Data) != "k" {
		t.Fatalf("query aliased caller slice: %q", got.Data)
	}

	body := []byte{7}
	events := []operation.Payload{operation.RawEvent{Name: "changed", Data: body}}
	pub, err := NewPublishRequest(3, 42, 9, 8, events)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	body[0] = 0
	b, err = codec.Marshal(pub)
	if err != nil {
		t.Fatalf("marshal publish: %v", err)
	}
	decoded, err = codec.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal publish: %v", err)
	}
	got := decoded.(PublishRequest).Events()[0].(operation.RawEvent)
	if len(got.Data) != 1 || got.Data[0] != 7 {
		t.Fatalf("event aliased caller slice: %v", got.Data)
	}
}

func TestAddressValidation(t *testing.T) {
	testlog.Start(t)
	_, err := NewKeepAliveResponse(1, StatusOK, ErrNone, Address{Port: 80}, nil)
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldLeader)

	_, err = NewKeepAliveResponse(1, StatusOK, ErrNone, Address{}, []Address{{Host: "a", Port: 1}, {Port: 2}})
	requireValidation(t, err, schema.ErrInvalidArgument, schema.FieldMembers)

	addr, err := ParseAddress("node-1:8700")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr.Host != "node-1" || addr.Port != 8700 || addr.String() != "node-1:8700" {
		t.Fatalf("unexpected address %+v", addr)
	}
	if _, err := ParseAddress("node-1:99999"); err == nil {
		t.Fatalf("expected port overflow error")
	}
	if _, err := ParseAddress(":80"); err == nil {
		t.Fatalf("expected missing host error")
	}
}

func TestBoundaryValuesAccepted(t *testing.T) {
	testlog.Start(t)
	if _, err := NewQueryRequest(math.MaxInt64, math.MaxInt64, math.MaxInt64, math.MaxInt64, getQuery(operation.Linearizable)); err != nil {
		t.Fatalf("max values: %v", err)
	}
	if _, err := NewKeepAliveRequest(0, 0, 0, 0); err != nil {
		t.Fatalf("zero values: %v", err)
	}
	if _, err := NewRegisterRequest(0, "client", 0); err != nil {
		t.Fatalf("zero timeout: %v", err)
	}
}

func TestMessageTypeNames(t *testing.T) {
	testlog.Start(t)
	if TypeQueryRequest.String() != "query.request" {
		t.Fatalf("unexpected name %s", TypeQueryRequest)
	}
	if MessageType(0x7f).String() != "unknown(0x7f)" {
		t.Fatalf("unexpected unknown name %s", MessageType(0x7f))
	}
	if TypeQueryRequest.IsResponse() || !TypePublishResponse.IsResponse() {
		t.Fatalf("unexpected response classification")
	}
}
