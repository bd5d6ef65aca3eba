package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/copycatwire/internal/protocol"
)

var (
	ErrDuplicateSequence = errors.New("session: sequence already pending")
	ErrNotPending        = errors.New("session: sequence not pending")
	ErrOutboxFull        = errors.New("session: outbox full")
	ErrNotRetryable      = errors.New("session: request cannot be retried")
)

// Pending tracks one operation awaiting its response.
type Pending struct {
	Request       protocol.OperationRequest
	Attempts      int
	QueuedAt      time.Time
	LastAttemptAt time.Time
	LastError     string
}

func (p Pending) Sequence() int64 {
	return p.Request.Sequence()
}

// Outbox stores unacknowledged operations by sequence. A client resends
// Oldest before advancing past it.
type Outbox struct {
	mu    sync.RWMutex
	limit int
	items map[int64]Pending
}

// NewOutbox returns an outbox holding at most limit operations; zero means
// unbounded.
func NewOutbox(limit int) *Outbox {
	return &Outbox{
		limit: limit,
		items: make(map[int64]Pending),
	}
}

func (o *Outbox) Add(req protocol.OperationRequest, at time.Time) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrNotRetryable)
	}
	seq := req.Sequence()
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[seq]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateSequence, seq)
	}
	if o.limit > 0 && len(o.items) >= o.limit {
		return fmt.Errorf("%w: %d pending", ErrOutboxFull, len(o.items))
	}
	o.items[seq] = Pending{Request: req, QueuedAt: at}
	return nil
}

func (o *Outbox) MarkAttempt(seq int64, at time.Time, lastErr string) (Pending, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[seq]
	if !ok {
		return Pending{}, false
	}
	item.Attempts++
	item.LastAttemptAt = at
	item.LastError = strings.TrimSpace(lastErr)
	o.items[seq] = item
	return item, true
}

// Retry swaps the stored request for the same operation under id and
// returns it. Session, sequence and payload are unchanged.
func (o *Outbox) Retry(seq, id int64) (protocol.OperationRequest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[seq]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotPending, seq)
	}
	var next protocol.OperationRequest
	switch req := item.Request.(type) {
	case protocol.CommandRequest:
		r, err := req.WithID(id)
		if err != nil {
			return nil, err
		}
		next = r
	case protocol.QueryRequest:
		r, err := req.WithID(id)
		if err != nil {
			return nil, err
		}
		next = r
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotRetryable, item.Request)
	}
	item.Request = next
	o.items[seq] = item
	return next, nil
}

// Ack removes every operation up to and including seq and returns how many
// were removed.
func (o *Outbox) Ack(seq int64) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for s := range o.items {
		if s <= seq {
			delete(o.items, s)
			n++
		}
	}
	return n
}

// Oldest returns the lowest pending sequence.
func (o *Outbox) Oldest() (Pending, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var (
		oldest Pending
		found  bool
	)
	for s, item := range o.items {
		if !found || s < oldest.Sequence() {
			oldest, found = item, true
		}
	}
	return oldest, found
}

func (o *Outbox) Get(seq int64) (Pending, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[seq]
	return item, ok
}

func (o *Outbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

func (o *Outbox) List() []Pending {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Pending, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence() < out[j].Sequence()
	})
	return out
}
