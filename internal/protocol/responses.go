package protocol

import (
	"fmt"

	"github.com/danmuck/copycatwire/internal/protocol/schema"
)

// Response constructors take the status and error code explicitly and
// reject any pairing other than (OK, ErrNone) or (ERROR, known code).

func responseHeader(v *validator, id int64, status Status, code CopycatError) ResponseHeader {
	v.nonNegative(schema.FieldID, id)
	v.status(status, code)
	return ResponseHeader{id: id, status: status, code: code}
}

// membership is the leader hint and member list returned by session
// responses so a client can find the cluster again after a failover.
type membership struct {
	leader  Address
	members []Address
}

func (m membership) Leader() Address { return m.leader }

func (m membership) Members() []Address {
	return copyAddresses(m.members)
}

// ConnectResponse answers ConnectRequest.
type ConnectResponse struct {
	ResponseHeader
	membership
}

func NewConnectResponse(id int64, status Status, code CopycatError, leader Address, members []Address) (ConnectResponse, error) {
	v := newValidator(TypeConnectResponse)
	h := responseHeader(v, id, status, code)
	v.addresses(leader, members)
	if v.err != nil {
		return ConnectResponse{}, v.err
	}
	return ConnectResponse{ResponseHeader: h, membership: membership{leader: leader, members: copyAddresses(members)}}, nil
}

func (ConnectResponse) Type() MessageType { return TypeConnectResponse }

func (r ConnectResponse) String() string {
	return fmt.Sprintf("ConnectResponse[%s, leader=%s, members=%d]", r.describe(), r.leader, len(r.members))
}

// RegisterResponse carries the session id assigned by the cluster and the
// session timeout in milliseconds.
type RegisterResponse struct {
	ResponseHeader
	membership
	session int64
	timeout int64
}

func NewRegisterResponse(id int64, status Status, code CopycatError, session, timeout int64, leader Address, members []Address) (RegisterResponse, error) {
	v := newValidator(TypeRegisterResponse)
	h := responseHeader(v, id, status, code)
	v.nonNegative(schema.FieldSession, session)
	v.nonNegative(schema.FieldTimeout, timeout)
	v.addresses(leader, members)
	if v.err != nil {
		return RegisterResponse{}, v.err
	}
	return RegisterResponse{
		ResponseHeader: h,
		membership:     membership{leader: leader, members: copyAddresses(members)},
		session:        session,
		timeout:        timeout,
	}, nil
}

func (RegisterResponse) Type() MessageType { return TypeRegisterResponse }
func (r RegisterResponse) Session() int64  { return r.session }
func (r RegisterResponse) Timeout() int64  { return r.timeout }

func (r RegisterResponse) String() string {
	return fmt.Sprintf("RegisterResponse[%s, session=%d, timeout=%d, leader=%s, members=%d]", r.describe(), r.session, r.timeout, r.leader, len(r.members))
}

// KeepAliveResponse answers KeepAliveRequest.
type KeepAliveResponse struct {
	ResponseHeader
	membership
}

func NewKeepAliveResponse(id int64, status Status, code CopycatError, leader Address, members []Address) (KeepAliveResponse, error) {
	v := newValidator(TypeKeepAliveResponse)
	h := responseHeader(v, id, status, code)
	v.addresses(leader, members)
	if v.err != nil {
		return KeepAliveResponse{}, v.err
	}
	return KeepAliveResponse{ResponseHeader: h, membership: membership{leader: leader, members: copyAddresses(members)}}, nil
}

func (KeepAliveResponse) Type() MessageType { return TypeKeepAliveResponse }

func (r KeepAliveResponse) String() string {
	return fmt.Sprintf("KeepAliveResponse[%s, leader=%s, members=%d]", r.describe(), r.leader, len(r.members))
}

// UnregisterResponse answers UnregisterRequest.
type UnregisterResponse struct {
	ResponseHeader
}

func NewUnregisterResponse(id int64, status Status, code CopycatError) (UnregisterResponse, error) {
	v := newValidator(TypeUnregisterResponse)
	h := responseHeader(v, id, status, code)
	if v.err != nil {
		return UnregisterResponse{}, v.err
	}
	return UnregisterResponse{ResponseHeader: h}, nil
}

func (UnregisterResponse) Type() MessageType { return TypeUnregisterResponse }

func (r UnregisterResponse) String() string {
	return fmt.Sprintf("UnregisterResponse[%s]", r.describe())
}

// operationResult is shared by command and query responses. Index is the
// log index the operation was applied at; EventIndex is the highest event
// index published to the session at that point.
type operationResult struct {
	index      int64
	eventIndex int64
	result     []byte
}

func (o operationResult) Index() int64      { return o.index }
func (o operationResult) EventIndex() int64 { return o.eventIndex }

// Result is the opaque state machine output.
func (o operationResult) Result() []byte {
	out := make([]byte, len(o.result))
	copy(out, o.result)
	return out
}

func newOperationResult(v *validator, index, eventIndex int64, result []byte) operationResult {
	v.nonNegative(schema.FieldIndex, index)
	v.nonNegative(schema.FieldEventIndex, eventIndex)
	out := make([]byte, len(result))
	copy(out, result)
	return operationResult{index: index, eventIndex: eventIndex, result: out}
}

// CommandResponse answers CommandRequest.
type CommandResponse struct {
	ResponseHeader
	operationResult
}

func NewCommandResponse(id int64, status Status, code CopycatError, index, eventIndex int64, result []byte) (CommandResponse, error) {
	v := newValidator(TypeCommandResponse)
	h := responseHeader(v, id, status, code)
	res := newOperationResult(v, index, eventIndex, result)
	if v.err != nil {
		return CommandResponse{}, v.err
	}
	return CommandResponse{ResponseHeader: h, operationResult: res}, nil
}

func (CommandResponse) Type() MessageType { return TypeCommandResponse }

func (r CommandResponse) String() string {
	return fmt.Sprintf("CommandResponse[%s, index=%d, eventIndex=%d, result=%d bytes]", r.describe(), r.index, r.eventIndex, len(r.result))
}

// QueryResponse answers QueryRequest.
type QueryResponse struct {
	ResponseHeader
	operationResult
}

func NewQueryResponse(id int64, status Status, code CopycatError, index, eventIndex int64, result []byte) (QueryResponse, error) {
	v := newValidator(TypeQueryResponse)
	h := responseHeader(v, id, status, code)
	res := newOperationResult(v, index, eventIndex, result)
	if v.err != nil {
		return QueryResponse{}, v.err
	}
	return QueryResponse{ResponseHeader: h, operationResult: res}, nil
}

func (QueryResponse) Type() MessageType { return TypeQueryResponse }

func (r QueryResponse) String() string {
	return fmt.Sprintf("QueryResponse[%s, index=%d, eventIndex=%d, result=%d bytes]", r.describe(), r.index, r.eventIndex, len(r.result))
}

// PublishResponse acknowledges events up to Index.
type PublishResponse struct {
	ResponseHeader
	index int64
}

func NewPublishResponse(id int64, status Status, code CopycatError, index int64) (PublishResponse, error) {
	v := newValidator(TypePublishResponse)
	h := responseHeader(v, id, status, code)
	v.nonNegative(schema.FieldIndex, index)
	if v.err != nil {
		return PublishResponse{}, v.err
	}
	return PublishResponse{ResponseHeader: h, index: index}, nil
}

func (PublishResponse) Type() MessageType { return TypePublishResponse }
func (r PublishResponse) Index() int64    { return r.index }

func (r PublishResponse) String() string {
	return fmt.Sprintf("PublishResponse[%s, index=%d]", r.describe(), r.index)
}
