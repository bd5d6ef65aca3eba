package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/copycatwire/internal/protocol"
)

var (
	ErrSequenceGap      = errors.New("session: sequence gap")
	ErrStaleSequence    = errors.New("session: sequence already acknowledged")
	ErrSequenceConflict = errors.New("session: sequence reused for a different operation")
	ErrNotAdmitted      = errors.New("session: sequence not admitted")
	ErrUnknownSession   = errors.New("session: unknown session")
)

// Verdict is what a server should do with an incoming operation.
type Verdict int

const (
	// Apply means the operation is next in sequence and has not been seen.
	Apply Verdict = iota + 1
	// InFlight means the operation was admitted and is still being applied;
	// the retry should be dropped and the original's response awaited.
	InFlight
	// Replay means the operation was applied already; the cached response
	// should be sent again without re-applying.
	Replay
)

func (v Verdict) String() string {
	switch v {
	case Apply:
		return "apply"
	case InFlight:
		return "in-flight"
	case Replay:
		return "replay"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

type windowEntry struct {
	key      protocol.OperationKey
	response protocol.Response // nil while in flight
}

// sessionWindow covers sequences acked < seq <= admitted. Entries up to
// applied hold a response; the rest are in flight.
type sessionWindow struct {
	acked    int64
	applied  int64
	admitted int64
	entries  map[int64]*windowEntry
}

// Window is the server-side view of each session's operations. Responses
// stay cached until the client acknowledges them through a KeepAlive, so a
// retry of any unacknowledged sequence is answered from cache instead of
// applied twice.
type Window struct {
	mu       sync.Mutex
	sessions map[int64]*sessionWindow
}

func NewWindow() *Window {
	return &Window{sessions: make(map[int64]*sessionWindow)}
}

// Open starts tracking session at sequence 0. Opening a tracked session is
// a no-op.
func (w *Window) Open(session int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sessions[session]; !ok {
		w.sessions[session] = &sessionWindow{entries: make(map[int64]*windowEntry)}
	}
}

// Close forgets session, e.g. after Unregister or expiry.
func (w *Window) Close(session int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, session)
}

// Last returns the last applied sequence of session.
func (w *Window) Last(session int64) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[session]
	if !ok {
		return 0, false
	}
	return s.applied, true
}

// Cached returns how many responses session still holds.
func (w *Window) Cached(session int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[session]
	if !ok {
		return 0
	}
	return int(s.applied - s.acked)
}

func (w *Window) lookup(session int64) (*sessionWindow, error) {
	s, ok := w.sessions[session]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSession, session)
	}
	return s, nil
}

// Admit classifies req. Apply reserves the sequence until Commit or
// Release; Replay returns the cached response.
func (w *Window) Admit(req protocol.OperationRequest) (Verdict, protocol.Response, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.lookup(req.Session())
	if err != nil {
		return 0, nil, err
	}
	seq := req.Sequence()
	switch {
	case seq == s.admitted+1:
		s.admitted = seq
		s.entries[seq] = &windowEntry{key: req.Key()}
		return Apply, nil, nil
	case seq <= s.acked:
		return 0, nil, fmt.Errorf("%w: session=%d sequence=%d acked=%d", ErrStaleSequence, req.Session(), seq, s.acked)
	case seq <= s.admitted:
		e := s.entries[seq]
		if req.Key() != e.key {
			return 0, nil, fmt.Errorf("%w: session=%d sequence=%d", ErrSequenceConflict, req.Session(), seq)
		}
		if e.response == nil {
			return InFlight, nil, nil
		}
		return Replay, e.response, nil
	default:
		log.Debug().
			Int64("session", req.Session()).
			Int64("sequence", seq).
			Int64("expected", s.admitted+1).
			Msg("sequence gap")
		return 0, nil, fmt.Errorf("%w: session=%d sequence=%d expected=%d", ErrSequenceGap, req.Session(), seq, s.admitted+1)
	}
}

// Commit records that the admitted req was applied and produced resp.
// Operations commit in sequence order.
func (w *Window) Commit(req protocol.OperationRequest, resp protocol.Response) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.lookup(req.Session())
	if err != nil {
		return err
	}
	seq := req.Sequence()
	e, ok := s.entries[seq]
	if !ok || e.response != nil || e.key != req.Key() {
		return fmt.Errorf("%w: session=%d sequence=%d", ErrNotAdmitted, req.Session(), seq)
	}
	if seq != s.applied+1 {
		return fmt.Errorf("%w: session=%d sequence=%d expected=%d", ErrSequenceGap, req.Session(), seq, s.applied+1)
	}
	e.response = resp
	s.applied = seq
	return nil
}

// Release drops the admission of req and every later in-flight sequence so
// the client's retries are applied again. It returns how many admissions
// were dropped.
func (w *Window) Release(req protocol.OperationRequest) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.lookup(req.Session())
	if err != nil {
		return 0, err
	}
	seq := req.Sequence()
	e, ok := s.entries[seq]
	if !ok || e.response != nil || e.key != req.Key() {
		return 0, fmt.Errorf("%w: session=%d sequence=%d", ErrNotAdmitted, req.Session(), seq)
	}
	n := 0
	for i := seq; i <= s.admitted; i++ {
		delete(s.entries, i)
		n++
	}
	s.admitted = seq - 1
	return n, nil
}

// Ack discards cached responses up to commandSequence, which the client has
// received. Sequences not yet applied are never discarded.
func (w *Window) Ack(session, commandSequence int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.lookup(session)
	if err != nil {
		return err
	}
	upto := min(commandSequence, s.applied)
	for i := s.acked + 1; i <= upto; i++ {
		delete(s.entries, i)
	}
	if upto > s.acked {
		s.acked = upto
	}
	return nil
}

// KeepAlive applies the acknowledgement carried by req.
func (w *Window) KeepAlive(req protocol.KeepAliveRequest) error {
	return w.Ack(req.Session(), req.CommandSequence())
}
