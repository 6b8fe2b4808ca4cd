package signin

import (
	"sync"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
)

type EventKind int

const (
	// EventAuthenticating: a PIN was accepted and an attempt started.
	EventAuthenticating EventKind = iota + 1
	// EventError: the latest attempt failed; Err holds the classified error.
	EventError
	// EventAuthenticated: the latest attempt stored its credential.
	EventAuthenticated
)

func (k EventKind) String() string {
	switch k {
	case EventAuthenticating:
		return "authenticating"
	case EventError:
		return "error"
	case EventAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind      EventKind
	AttemptID string
	Domain    string

	// set for EventAuthenticated
	Account        *models.Account
	Authentication *models.Authentication

	// set for EventError
	Err error
}

// eventQueue is an unbounded FIFO drained into out by a single goroutine.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	closed bool

	out  chan Event
	quit chan struct{}
	done chan struct{}
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		out:  make(chan Event),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.drain()
	return q
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, e)
	q.cond.Signal()
}

func (q *eventQueue) drain() {
	defer close(q.done)
	defer close(q.out)

	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		e := q.items[0]
		q.items[0] = Event{}
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case q.out <- e:
		case <-q.quit:
			return
		}
	}
}

// close drops undelivered events, closes out and waits for the drain
// goroutine to exit. Safe to call more than once.
func (q *eventQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.items = nil
		close(q.quit)
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}
