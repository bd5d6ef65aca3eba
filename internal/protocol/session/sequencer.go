package session

import (
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"

	"github.com/danmuck/copycatwire/internal/protocol"
	"github.com/danmuck/copycatwire/internal/protocol/operation"
)

// NewClientID returns a random client identity for Connect and Register.
func NewClientID() string {
	return uuid.NewV4().String()
}

// Sequencer hands out correlation ids and operation sequences for one
// session. Commands and queries share the sequence counter. A sequence is
// consumed only when the request was built, so the counter never skips.
type Sequencer struct {
	mu           sync.Mutex
	session      int64
	nextID       int64
	nextSequence int64
	// completed is the highest sequence below which every response has
	// been seen; done holds responses that arrived past a hole.
	completed  int64
	done       map[int64]struct{}
	eventIndex int64
}

func NewSequencer(session int64) (*Sequencer, error) {
	if session < 0 {
		return nil, fmt.Errorf("session: negative session id %d", session)
	}
	return &Sequencer{
		session:      session,
		nextID:       1,
		nextSequence: 1,
		done:         make(map[int64]struct{}),
	}, nil
}

func (s *Sequencer) Session() int64 {
	return s.session
}

// NextID allocates a correlation id. Retries take a fresh id too.
func (s *Sequencer) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocID()
}

func (s *Sequencer) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// Command builds the next command request of the session.
func (s *Sequencer) Command(p operation.Payload) (protocol.CommandRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, err := protocol.NewCommandRequest(s.nextID, s.session, s.nextSequence, p)
	if err != nil {
		return protocol.CommandRequest{}, err
	}
	s.nextID++
	s.nextSequence++
	return req, nil
}

// Query builds the next query request. index is the lowest log index the
// answering member must have applied.
func (s *Sequencer) Query(index int64, q operation.Query) (protocol.QueryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, err := protocol.NewQueryRequest(s.nextID, s.session, s.nextSequence, index, q)
	if err != nil {
		return protocol.QueryRequest{}, err
	}
	s.nextID++
	s.nextSequence++
	return req, nil
}

// Complete records the response for sequence.
func (s *Sequencer) Complete(sequence int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sequence <= s.completed || sequence >= s.nextSequence {
		return
	}
	s.done[sequence] = struct{}{}
	for {
		if _, ok := s.done[s.completed+1]; !ok {
			break
		}
		delete(s.done, s.completed+1)
		s.completed++
	}
}

// ObserveEvent raises the highest event index received from the cluster.
func (s *Sequencer) ObserveEvent(index int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index > s.eventIndex {
		s.eventIndex = index
	}
}

// Bounds reports the contiguous completed sequence and the event index.
func (s *Sequencer) Bounds() (completed, eventIndex int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.eventIndex
}

// KeepAlive builds a lease renewal carrying the current bounds.
func (s *Sequencer) KeepAlive() (protocol.KeepAliveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.NewKeepAliveRequest(s.allocID(), s.session, s.completed, s.eventIndex)
}

// Reset builds a request asking the cluster to resend events after the
// last one observed.
func (s *Sequencer) Reset() (protocol.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.NewResetRequest(s.allocID(), s.session, s.eventIndex)
}

// Unregister builds the request that closes the session.
func (s *Sequencer) Unregister() (protocol.UnregisterRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.NewUnregisterRequest(s.allocID(), s.session)
}
