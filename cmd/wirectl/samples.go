package main

import (
	"github.com/danmuck/copycatwire/internal/protocol"
	"github.com/danmuck/copycatwire/internal/protocol/operation"
	"github.com/danmuck/copycatwire/internal/protocol/session"
)

// sampleMessages builds one plausible exchange covering every message
// type: connect, register, two operations, a publish, keep-alive, reset
// and unregister, each followed by its response where one exists.
func sampleMessages(sessionID int64, cfg session.Config) ([]protocol.Message, error) {
	leader := protocol.Address{Host: "10.0.0.1", Port: 8700}
	members := []protocol.Address{
		leader,
		{Host: "10.0.0.2", Port: 8700},
		{Host: "10.0.0.3", Port: 8700},
	}
	client := session.NewClientID()

	seq, err := session.NewSequencer(sessionID)
	if err != nil {
		return nil, err
	}
	var msgs []protocol.Message
	add := func(m protocol.Message, err error) error {
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
		return nil
	}
	steps := []func() error{
		func() error {
			m, err := protocol.NewConnectRequest(seq.NextID(), client)
			return add(m, err)
		},
		func() error {
			m, err := protocol.NewConnectResponse(msgs[len(msgs)-1].ID(), protocol.StatusOK, protocol.ErrNone, leader, members)
			return add(m, err)
		},
		func() error {
			m, err := protocol.NewRegisterRequest(seq.NextID(), client, cfg.TimeoutMillis())
			return add(m, err)
		},
		func() error {
			m, err := protocol.NewRegisterResponse(msgs[len(msgs)-1].ID(), protocol.StatusOK, protocol.ErrNone, sessionID, cfg.TimeoutMillis(), leader, members)
			return add(m, err)
		},
		func() error {
			m, err := seq.Command(operation.RawCommand{Name: "put", Data: []byte("color=blue")})
			return add(m, err)
		},
		func() error {
			req := msgs[len(msgs)-1].(protocol.CommandRequest)
			seq.Complete(req.Sequence())
			m, err := protocol.NewCommandResponse(req.ID(), protocol.StatusOK, protocol.ErrNone, 101, 0, []byte("ok"))
			return add(m, err)
		},
		func() error {
			m, err := seq.Query(101, operation.RawQuery{Name: "get", Data: []byte("color"), Level: operation.Sequential})
			return add(m, err)
		},
		func() error {
			req := msgs[len(msgs)-1].(protocol.QueryRequest)
			seq.Complete(req.Sequence())
			m, err := protocol.NewQueryResponse(req.ID(), protocol.StatusOK, protocol.ErrNone, 101, 0, []byte("blue"))
			return add(m, err)
		},
		func() error {
			events := []operation.Payload{operation.RawEvent{Name: "changed", Data: []byte("color")}}
			m, err := protocol.NewPublishRequest(1, sessionID, 102, 0, events)
			return add(m, err)
		},
		func() error {
			seq.ObserveEvent(102)
			m, err := protocol.NewPublishResponse(1, protocol.StatusOK, protocol.ErrNone, 102)
			return add(m, err)
		},
		func() error {
			m, err := seq.KeepAlive()
			return add(m, err)
		},
		func() error {
			m, err := protocol.NewKeepAliveResponse(msgs[len(msgs)-1].ID(), protocol.StatusOK, protocol.ErrNone, leader, members)
			return add(m, err)
		},
		func() error {
			m, err := seq.Reset()
			return add(m, err)
		},
		func() error {
			m, err := seq.Unregister()
			return add(m, err)
		},
		func() error {
			m, err := protocol.NewUnregisterResponse(msgs[len(msgs)-1].ID(), protocol.StatusError, protocol.ErrUnknownSession)
			return add(m, err)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}
