package signin

import (
	"sync"

	"github.com/dmitrijs2005/fediauth/internal/client/domain"
)

// ReadinessState is derived from the latest server input.
type ReadinessState struct {
	Input         string
	Domain        domain.Domain
	Valid         bool
	SignInEnabled bool
}

func readinessFor(raw string) ReadinessState {
	d, ok := domain.Normalize(raw)
	return ReadinessState{Input: raw, Domain: d, Valid: ok, SignInEnabled: ok}
}

// Tracker holds the readiness state for the server input field.
//
// SetInput calls are serialized: subscribers see every state in input order
// and never a stale one after a newer call returned. Subscribers run on the
// caller's goroutine and must not call SetInput themselves.
type Tracker struct {
	setMu sync.Mutex

	mu    sync.Mutex
	state ReadinessState
	subs  map[uint64]func(ReadinessState)
	order []uint64
	next  uint64
}

func NewTracker() *Tracker {
	return &Tracker{
		state: readinessFor(""),
		subs:  make(map[uint64]func(ReadinessState)),
	}
}

// SetInput recomputes the state from raw and notifies subscribers.
func (t *Tracker) SetInput(raw string) ReadinessState {
	t.setMu.Lock()
	defer t.setMu.Unlock()

	st := readinessFor(raw)

	t.mu.Lock()
	t.state = st
	fns := t.subscribers()
	t.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
	return st
}

func (t *Tracker) State() ReadinessState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe registers fn and calls it once with the current state. The
// returned func removes the subscription.
func (t *Tracker) Subscribe(fn func(ReadinessState)) (cancel func()) {
	t.setMu.Lock()
	defer t.setMu.Unlock()

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = fn
	t.order = append(t.order, id)
	st := t.state
	t.mu.Unlock()

	fn(st)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			for i, v := range t.order {
				if v == id {
					t.order = append(t.order[:i], t.order[i+1:]...)
					break
				}
			}
		})
	}
}

// subscribers must be called with t.mu held.
func (t *Tracker) subscribers() []func(ReadinessState) {
	fns := make([]func(ReadinessState), 0, len(t.order))
	for _, id := range t.order {
		fns = append(fns, t.subs[id])
	}
	return fns
}
