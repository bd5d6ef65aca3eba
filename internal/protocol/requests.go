package protocol

import (
	"fmt"
	"strings"

	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/schema"
)

// ConnectRequest opens a connection for a client on any member.
type ConnectRequest struct {
	RequestHeader
	client string
}

func NewConnectRequest(id int64, client string) (ConnectRequest, error) {
	v := newValidator(TypeConnectRequest)
	v.nonNegative(schema.FieldID, id)
	v.required(schema.FieldClient, strings.TrimSpace(client) != "")
	if v.err != nil {
		return ConnectRequest{}, v.err
	}
	return ConnectRequest{RequestHeader: RequestHeader{id: id}, client: client}, nil
}

func (ConnectRequest) Type() MessageType { return TypeConnectRequest }
func (r ConnectRequest) Client() string  { return r.client }

func (r ConnectRequest) String() string {
	return fmt.Sprintf("ConnectRequest[id=%d, client=%s]", r.id, r.client)
}

// RegisterRequest asks the cluster to open a new session for client.
// Timeout is the requested session timeout in milliseconds; zero lets the
// server choose.
type RegisterRequest struct {
	RequestHeader
	client  string
	timeout int64
}

func NewRegisterRequest(id int64, client string, timeout int64) (RegisterRequest, error) {
	v := newValidator(TypeRegisterRequest)
	v.nonNegative(schema.FieldID, id)
	v.required(schema.FieldClient, strings.TrimSpace(client) != "")
	v.nonNegative(schema.FieldTimeout, timeout)
	if v.err != nil {
		return RegisterRequest{}, v.err
	}
	return RegisterRequest{RequestHeader: RequestHeader{id: id}, client: client, timeout: timeout}, nil
}

func (RegisterRequest) Type() MessageType { return TypeRegisterRequest }
func (r RegisterRequest) Client() string  { return r.client }
func (r RegisterRequest) Timeout() int64  { return r.timeout }

func (r RegisterRequest) String() string {
	return fmt.Sprintf("RegisterRequest[id=%d, client=%s, timeout=%d]", r.id, r.client, r.timeout)
}

// KeepAliveRequest renews a session lease and reports the highest command
// sequence and event index the client has received.
type KeepAliveRequest struct {
	SessionHeader
	commandSequence int64
	eventIndex      int64
}

func NewKeepAliveRequest(id, session, commandSequence, eventIndex int64) (KeepAliveRequest, error) {
	v := newValidator(TypeKeepAliveRequest)
	v.nonNegative(schema.FieldID, id)
	v.nonNegative(schema.FieldSession, session)
	v.nonNegative(schema.FieldCommandSequence, commandSequence)
	v.nonNegative(schema.FieldEventIndex, eventIndex)
	if v.err != nil {
		return KeepAliveRequest{}, v.err
	}
	return KeepAliveRequest{
		SessionHeader:   sessionHeader(id, session),
		commandSequence: commandSequence,
		eventIndex:      eventIndex,
	}, nil
}

func (KeepAliveRequest) Type() MessageType        { return TypeKeepAliveRequest }
func (r KeepAliveRequest) CommandSequence() int64 { return r.commandSequence }
func (r KeepAliveRequest) EventIndex() int64      { return r.eventIndex }

func (r KeepAliveRequest) String() string {
	return fmt.Sprintf("KeepAliveRequest[id=%d, session=%d, commandSequence=%d, eventIndex=%d]", r.id, r.session, r.commandSequence, r.eventIndex)
}

// UnregisterRequest closes a session.
type UnregisterRequest struct {
	SessionHeader
}

func NewUnregisterRequest(id, session int64) (UnregisterRequest, error) {
	v := newValidator(TypeUnregisterRequest)
	v.nonNegative(schema.FieldID, id)
	v.nonNegative(schema.FieldSession, session)
	if v.err != nil {
		return UnregisterRequest{}, v.err
	}
	return UnregisterRequest{SessionHeader: sessionHeader(id, session)}, nil
}

func (UnregisterRequest) Type() MessageType { return TypeUnregisterRequest }

func (r UnregisterRequest) String() string {
	return fmt.Sprintf("UnregisterRequest[id=%d, session=%d]", r.id, r.session)
}

// CommandRequest submits a state mutation. Commands are always handled by
// the leader and applied once per (session, sequence).
type CommandRequest struct {
	OperationHeader
	command operation.Payload
	digest  string
}

func NewCommandRequest(id, session, sequence int64, command operation.Payload) (CommandRequest, error) {
	v := newValidator(TypeCommandRequest)
	v.nonNegative(schema.FieldID, id)
	v.nonNegative(schema.FieldSession, session)
	v.sequence(schema.FieldSequence, sequence)
	digest := v.payload(schema.FieldCommand, command, operation.KindCommand)
	if v.err != nil {
		return CommandRequest{}, v.err
	}
	return CommandRequest{
		OperationHeader: operationHeader(id, session, sequence),
		command:         operation.Clone(command),
		digest:          digest,
	}, nil
}

func (CommandRequest) Type() MessageType              { return TypeCommandRequest }
func (r CommandRequest) Command() operation.Payload   { return operation.Clone(r.command) }
func (r CommandRequest) Operation() operation.Payload { return operation.Clone(r.command) }

func (r CommandRequest) Key() OperationKey {
	return OperationKey{Type: TypeCommandRequest, Session: r.session, Sequence: r.sequence, Payload: r.digest}
}

// WithID returns the same logical command under a new correlation id.
func (r CommandRequest) WithID(id int64) (CommandRequest, error) {
	return NewCommandRequest(id, r.session, r.sequence, r.command)
}

func (r CommandRequest) String() string {
	return fmt.Sprintf("CommandRequest[id=%d, session=%d, sequence=%d, command=%v]", r.id, r.session, r.sequence, r.command)
}

// QueryRequest submits a read. Index is the lowest log index the answering
// member must have applied. Where the query may be evaluated depends on its
// consistency level; the encoding does not.
type QueryRequest struct {
	OperationHeader
	index  int64
	query  operation.Query
	digest string
}

func NewQueryRequest(id, session, sequence, index int64, query operation.Query) (QueryRequest, error) {
	v := newValidator(TypeQueryRequest)
	v.nonNegative(schema.FieldID, id)
	v.nonNegative(schema.FieldSession, session)
	v.sequence(schema.FieldSequence, sequence)
	v.nonNegative(schema.FieldIndex, index)
	var digest string
	if query == nil {
		v.required(schema.FieldQuery, false)
	} else {
		digest = v.payload(schema.FieldQuery, query, operation.KindQuery)
		v.argument(schema.FieldQuery, query.Consistency().Valid(), fmt.Sprintf("unknown consistency %s", query.Consistency()))
	}
	if v.err != nil {
		return QueryRequest{}, v.err
	}
	return QueryRequest{
		OperationHeader: operationHeader(id, session, sequence),
		index:           index,
		query:           operation.Clone(query),
		digest:          digest,
	}, nil
}

func (QueryRequest) Type() MessageType              { return TypeQueryRequest }
func (r QueryRequest) Index() int64                 { return r.index }
func (r QueryRequest) Query() operation.Query       { return operation.Clone(r.query) }
func (r QueryRequest) Operation() operation.Payload { return operation.Clone(r.query) }

// Consistency is the level of the carried query.
func (r QueryRequest) Consistency() operation.Consistency { return r.query.Consistency() }

// Key excludes the read index so a retry at a fresher index still matches.
func (r QueryRequest) Key() OperationKey {
	return OperationKey{Type: TypeQueryRequest, Session: r.session, Sequence: r.sequence, Payload: r.digest}
}

// WithID returns the same logical query under a new correlation id.
func (r QueryRequest) WithID(id int64) (QueryRequest, error) {
	return NewQueryRequest(id, r.session, r.sequence, r.index, r.query)
}

func (r QueryRequest) String() string {
	return fmt.Sprintf("QueryRequest[id=%d, session=%d, sequence=%d, index=%d, query=%v]", r.id, r.session, r.sequence, r.index, r.query)
}

// PublishRequest delivers session events from a server to its client.
// PreviousIndex is the event index of the prior publish, letting the
// client detect a gap.
type PublishRequest struct {
	SessionHeader
	eventIndex    int64
	previousIndex int64
	events        []operation.Payload
	encoded       []string
}

func NewPublishRequest(id, session, eventIndex, previousIndex int64, events []operation.Payload) (PublishRequest, error) {
	v := newValidator(TypePublishRequest)
	v.nonNegative(schema.FieldID, id)
	v.nonNegative(schema.FieldSession, session)
	v.nonNegative(schema.FieldEventIndex, eventIndex)
	v.nonNegative(schema.FieldPreviousIndex, previousIndex)
	v.argument(schema.FieldPreviousIndex, previousIndex <= eventIndex, "cannot exceed event_index")
	v.required(schema.FieldEvents, len(events) > 0)
	encoded := make([]string, len(events))
	for i, e := range events {
		encoded[i] = v.payload(fmt.Sprintf("%s[%d]", schema.FieldEvents, i), e, operation.KindEvent)
	}
	if v.err != nil {
		return PublishRequest{}, v.err
	}
	out := make([]operation.Payload, len(events))
	for i, e := range events {
		out[i] = operation.Clone(e)
	}
	return PublishRequest{
		SessionHeader: sessionHeader(id, session),
		eventIndex:    eventIndex,
		previousIndex: previousIndex,
		events:        out,
		encoded:       encoded,
	}, nil
}

func (PublishRequest) Type() MessageType      { return TypePublishRequest }
func (r PublishRequest) EventIndex() int64    { return r.eventIndex }
func (r PublishRequest) PreviousIndex() int64 { return r.previousIndex }

func (r PublishRequest) Events() []operation.Payload {
	out := make([]operation.Payload, len(r.events))
	for i, e := range r.events {
		out[i] = operation.Clone(e)
	}
	return out
}

func (r PublishRequest) String() string {
	return fmt.Sprintf("PublishRequest[id=%d, session=%d, eventIndex=%d, previousIndex=%d, events=%d]", r.id, r.session, r.eventIndex, r.previousIndex, len(r.events))
}

// ResetRequest tells a server to resend events after index.
type ResetRequest struct {
	SessionHeader
	index int64
}

func NewResetRequest(id, session, index int64) (ResetRequest, error) {
	v := newValidator(TypeResetRequest)
	v.nonNegative(schema.FieldID, id)
	v.nonNegative(schema.FieldSession, session)
	v.nonNegative(schema.FieldIndex, index)
	if v.err != nil {
		return ResetRequest{}, v.err
	}
	return ResetRequest{SessionHeader: sessionHeader(id, session), index: index}, nil
}

func (ResetRequest) Type() MessageType { return TypeResetRequest }
func (r ResetRequest) Index() int64    { return r.index }

func (r ResetRequest) String() string {
	return fmt.Sprintf("ResetRequest[id=%d, session=%d, index=%d]", r.id, r.session, r.index)
}

func sessionHeader(id, session int64) SessionHeader {
	return SessionHeader{RequestHeader: RequestHeader{id: id}, session: session}
}

func operationHeader(id, session, sequence int64) OperationHeader {
	return OperationHeader{SessionHeader: sessionHeader(id, session), sequence: sequence}
}
