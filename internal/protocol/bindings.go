package protocol

import (
	"fmt"

	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/wire"
)

// Body layouts. Every body starts with the correlation id. Fixed-width
// fields follow in the order listed in each binding's preamble, and
// variable-length data (strings, address lists, payloads) always comes
// last.
//
//	connect.request     id client
//	register.request    id timeout client
//	keepalive.request   id session command_sequence event_index
//	unregister.request  id session
//	command.request     id session sequence command
//	query.request       id session sequence index query
//	publish.request     id session event_index previous_index events
//	reset.request       id session index
//	*.response          id status error <body>
//
// Response bodies:
//
//	connect, keepalive  leader members
//	register            session timeout leader members
//	unregister          (empty)
//	command, query      index event_index result
//	publish             index

type binding struct {
	preamble preambleLayout
	encode   func(w *wire.Writer, m Message, table *operation.Table) error
	decode   func(r *wire.Reader, table *operation.Table) (Message, error)
}

var bindings = map[MessageType]binding{
	TypeConnectRequest:    {layoutID, encodeConnectRequest, decodeConnectRequest},
	TypeRegisterRequest:   {layoutID, encodeRegisterRequest, decodeRegisterRequest},
	TypeKeepAliveRequest:  {layoutSession, encodeKeepAliveRequest, decodeKeepAliveRequest},
	TypeUnregisterRequest: {layoutSession, encodeUnregisterRequest, decodeUnregisterRequest},
	TypeCommandRequest:    {layoutSequence, encodeCommandRequest, decodeCommandRequest},
	TypeQueryRequest:      {layoutIndexed, encodeQueryRequest, decodeQueryRequest},
	TypePublishRequest:    {layoutSession, encodePublishRequest, decodePublishRequest},
	TypeResetRequest:      {layoutSession, encodeResetRequest, decodeResetRequest},

	TypeConnectResponse:    {layoutResponse, encodeConnectResponse, decodeConnectResponse},
	TypeRegisterResponse:   {layoutResponse, encodeRegisterResponse, decodeRegisterResponse},
	TypeKeepAliveResponse:  {layoutResponse, encodeKeepAliveResponse, decodeKeepAliveResponse},
	TypeUnregisterResponse: {layoutResponse, encodeUnregisterResponse, decodeUnregisterResponse},
	TypeCommandResponse:    {layoutResponse, encodeCommandResponse, decodeCommandResponse},
	TypeQueryResponse:      {layoutResponse, encodeQueryResponse, decodeQueryResponse},
	TypePublishResponse:    {layoutResponse, encodePublishResponse, decodePublishResponse},
}

// asMessage drops the zero value a failed constructor returns so a decode
// error never comes with a message attached.
func asMessage[T Message](m T, err error) (Message, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

func mismatch(want MessageType, m Message) error {
	return fmt.Errorf("%w: binding %s got %T", ErrMessageTypeMismatch, want, m)
}

// writePayload writes the TLV bytes captured when the request was built, so
// the wire form always matches the request's key.
func writePayload(w *wire.Writer, table *operation.Table, p operation.Payload, encoded string) error {
	if err := table.Check(p); err != nil {
		return err
	}
	w.Raw([]byte(encoded))
	return nil
}

func readPayload(r *wire.Reader, table *operation.Table, want operation.Kind) (operation.Payload, error) {
	typeID := r.Uint16()
	kind := operation.Kind(r.Uint8())
	body := r.Blob()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return table.Resolve(typeID, kind, body, want)
}

// minPayloadSize is the TLV header size, the smallest a payload can be.
const minPayloadSize = 7

// minAddressSize is an empty host length prefix plus the port.
const minAddressSize = 6

func writeAddress(w *wire.Writer, a Address) {
	w.Text(a.Host)
	w.Uint16(a.Port)
}

func readAddress(r *wire.Reader) Address {
	host := r.Text()
	port := r.Uint16()
	return Address{Host: host, Port: port}
}

func writeMembership(w *wire.Writer, m membership) {
	writeAddress(w, m.leader)
	w.Uint32(uint32(len(m.members)))
	for _, a := range m.members {
		writeAddress(w, a)
	}
}

func readMembership(r *wire.Reader) (Address, []Address) {
	leader := readAddress(r)
	n := r.Count(minAddressSize)
	members := make([]Address, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		members = append(members, readAddress(r))
	}
	return leader, members
}

func writeResponseHeader(w *wire.Writer, h ResponseHeader) {
	w.Int64(h.id)
	w.Uint8(uint8(h.status))
	w.Uint8(uint8(h.code))
}

func readResponseHeader(r *wire.Reader) (int64, Status, CopycatError, error) {
	id := r.Int64()
	status := Status(r.Uint8())
	code := CopycatError(r.Uint8())
	if err := r.Err(); err != nil {
		return 0, 0, 0, err
	}
	if !status.Valid() {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(status))
	}
	if code != ErrNone && !code.Known() {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrUnknownErrorCode, uint8(code))
	}
	return id, status, code, nil
}

func encodeConnectRequest(w *wire.Writer, m Message, _ *operation.Table) error {
	req, ok := m.(ConnectRequest)
	if !ok {
		return mismatch(TypeConnectRequest, m)
	}
	w.Int64(req.id)
	w.Text(req.client)
	return nil
}

func decodeConnectRequest(r *wire.Reader, _ *operation.Table) (Message, error) {
	id := r.Int64()
	client := r.Text()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewConnectRequest(id, client))
}

func encodeRegisterRequest(w *wire.Writer, m Message, _ *operation.Table) error {
	req, ok := m.(RegisterRequest)
	if !ok {
		return mismatch(TypeRegisterRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.timeout)
	w.Text(req.client)
	return nil
}

func decodeRegisterRequest(r *wire.Reader, _ *operation.Table) (Message, error) {
	id := r.Int64()
	timeout := r.Int64()
	client := r.Text()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewRegisterRequest(id, client, timeout))
}

func encodeKeepAliveRequest(w *wire.Writer, m Message, _ *operation.Table) error {
	req, ok := m.(KeepAliveRequest)
	if !ok {
		return mismatch(TypeKeepAliveRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.session)
	w.Int64(req.commandSequence)
	w.Int64(req.eventIndex)
	return nil
}

func decodeKeepAliveRequest(r *wire.Reader, _ *operation.Table) (Message, error) {
	id := r.Int64()
	session := r.Int64()
	commandSequence := r.Int64()
	eventIndex := r.Int64()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewKeepAliveRequest(id, session, commandSequence, eventIndex))
}

func encodeUnregisterRequest(w *wire.Writer, m Message, _ *operation.Table) error {
	req, ok := m.(UnregisterRequest)
	if !ok {
		return mismatch(TypeUnregisterRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.session)
	return nil
}

func decodeUnregisterRequest(r *wire.Reader, _ *operation.Table) (Message, error) {
	id := r.Int64()
	session := r.Int64()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewUnregisterRequest(id, session))
}

func encodeCommandRequest(w *wire.Writer, m Message, table *operation.Table) error {
	req, ok := m.(CommandRequest)
	if !ok {
		return mismatch(TypeCommandRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.session)
	w.Int64(req.sequence)
	return writePayload(w, table, req.command, req.digest)
}

func decodeCommandRequest(r *wire.Reader, table *operation.Table) (Message, error) {
	id := r.Int64()
	session := r.Int64()
	sequence := r.Int64()
	command, err := readPayload(r, table, operation.KindCommand)
	if err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewCommandRequest(id, session, sequence, command))
}

func encodeQueryRequest(w *wire.Writer, m Message, table *operation.Table) error {
	req, ok := m.(QueryRequest)
	if !ok {
		return mismatch(TypeQueryRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.session)
	w.Int64(req.sequence)
	w.Int64(req.index)
	return writePayload(w, table, req.query, req.digest)
}

func decodeQueryRequest(r *wire.Reader, table *operation.Table) (Message, error) {
	id := r.Int64()
	session := r.Int64()
	sequence := r.Int64()
	index := r.Int64()
	p, err := readPayload(r, table, operation.KindQuery)
	if err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	query, ok := p.(operation.Query)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not carry a consistency level", operation.ErrPayloadKindMismatch, p)
	}
	return asMessage(NewQueryRequest(id, session, sequence, index, query))
}

func encodePublishRequest(w *wire.Writer, m Message, table *operation.Table) error {
	req, ok := m.(PublishRequest)
	if !ok {
		return mismatch(TypePublishRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.session)
	w.Int64(req.eventIndex)
	w.Int64(req.previousIndex)
	w.Uint32(uint32(len(req.events)))
	for i, e := range req.events {
		if err := writePayload(w, table, e, req.encoded[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodePublishRequest(r *wire.Reader, table *operation.Table) (Message, error) {
	id := r.Int64()
	session := r.Int64()
	eventIndex := r.Int64()
	previousIndex := r.Int64()
	n := r.Count(minPayloadSize)
	if err := r.Err(); err != nil {
		return nil, err
	}
	events := make([]operation.Payload, 0, n)
	for i := 0; i < n; i++ {
		e, err := readPayload(r, table, operation.KindEvent)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		events = append(events, e)
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewPublishRequest(id, session, eventIndex, previousIndex, events))
}

func encodeResetRequest(w *wire.Writer, m Message, _ *operation.Table) error {
	req, ok := m.(ResetRequest)
	if !ok {
		return mismatch(TypeResetRequest, m)
	}
	w.Int64(req.id)
	w.Int64(req.session)
	w.Int64(req.index)
	return nil
}

func decodeResetRequest(r *wire.Reader, _ *operation.Table) (Message, error) {
	id := r.Int64()
	session := r.Int64()
	index := r.Int64()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewResetRequest(id, session, index))
}

func encodeConnectResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(ConnectResponse)
	if !ok {
		return mismatch(TypeConnectResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	writeMembership(w, resp.membership)
	return nil
}

func decodeConnectResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	leader, members := readMembership(r)
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewConnectResponse(id, status, code, leader, members))
}

func encodeRegisterResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(RegisterResponse)
	if !ok {
		return mismatch(TypeRegisterResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	w.Int64(resp.session)
	w.Int64(resp.timeout)
	writeMembership(w, resp.membership)
	return nil
}

func decodeRegisterResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	session := r.Int64()
	timeout := r.Int64()
	leader, members := readMembership(r)
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewRegisterResponse(id, status, code, session, timeout, leader, members))
}

func encodeKeepAliveResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(KeepAliveResponse)
	if !ok {
		return mismatch(TypeKeepAliveResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	writeMembership(w, resp.membership)
	return nil
}

func decodeKeepAliveResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	leader, members := readMembership(r)
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewKeepAliveResponse(id, status, code, leader, members))
}

func encodeUnregisterResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(UnregisterResponse)
	if !ok {
		return mismatch(TypeUnregisterResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	return nil
}

func decodeUnregisterResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewUnregisterResponse(id, status, code))
}

func writeOperationResult(w *wire.Writer, o operationResult) {
	w.Int64(o.index)
	w.Int64(o.eventIndex)
	w.Blob(o.result)
}

func encodeCommandResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(CommandResponse)
	if !ok {
		return mismatch(TypeCommandResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	writeOperationResult(w, resp.operationResult)
	return nil
}

func decodeCommandResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	index := r.Int64()
	eventIndex := r.Int64()
	result := r.Blob()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewCommandResponse(id, status, code, index, eventIndex, result))
}

func encodeQueryResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(QueryResponse)
	if !ok {
		return mismatch(TypeQueryResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	writeOperationResult(w, resp.operationResult)
	return nil
}

func decodeQueryResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	index := r.Int64()
	eventIndex := r.Int64()
	result := r.Blob()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewQueryResponse(id, status, code, index, eventIndex, result))
}

func encodePublishResponse(w *wire.Writer, m Message, _ *operation.Table) error {
	resp, ok := m.(PublishResponse)
	if !ok {
		return mismatch(TypePublishResponse, m)
	}
	writeResponseHeader(w, resp.ResponseHeader)
	w.Int64(resp.index)
	return nil
}

func decodePublishResponse(r *wire.Reader, _ *operation.Table) (Message, error) {
	id, status, code, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	index := r.Int64()
	if err := r.Close(); err != nil {
		return nil, err
	}
	return asMessage(NewPublishResponse(id, status, code, index))
}
