package sequencer

import (
	"context"
	"sync"
)

// Tracker hands out tickets per key. Starting a new request for a key
// cancels the previous one, so only the latest ticket may publish a result.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	current map[string]*entry
}

type entry struct {
	seq    uint64
	cancel context.CancelFunc
}

// Ticket identifies one in-flight request.
type Ticket struct {
	tracker *Tracker
	key     string
	seq     uint64
}

// NewTracker создает трекер запросов.
func NewTracker() *Tracker {
	return &Tracker{current: make(map[string]*entry)}
}

// Begin отменяет предыдущий запрос по ключу и возвращает контекст нового.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.seq++
	seq := t.seq
	if prev, ok := t.current[key]; ok {
		prev.cancel()
	}
	t.current[key] = &entry{seq: seq, cancel: cancel}
	t.mu.Unlock()

	return ctx, Ticket{tracker: t, key: key, seq: seq}
}

// Current сообщает, является ли запрос последним для своего ключа.
func (t Ticket) Current() bool {
	if t.tracker == nil {
		return false
	}

	t.tracker.mu.Lock()
	defer t.tracker.mu.Unlock()

	e, ok := t.tracker.current[t.key]
	return ok && e.seq == t.seq
}

// Done освобождает ключ, если запрос все еще последний.
func (t Ticket) Done() {
	if t.tracker == nil {
		return
	}

	t.tracker.mu.Lock()
	defer t.tracker.mu.Unlock()

	e, ok := t.tracker.current[t.key]
	if !ok || e.seq != t.seq {
		return
	}
	e.cancel()
	delete(t.tracker.current, t.key)
}

// Len returns the number of keys with an in-flight request.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.current)
}
