package signin

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/logging"
)

// AppRegistrar creates the OAuth app a sign-in attempt runs under.
type AppRegistrar interface {
	RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error)
}

// Service is everything a Session needs from the services layer.
type Service interface {
	AppRegistrar
	TokenExchanger
	CredentialsVerifier
	UserDirectory
	CredentialMerger
}

// Session is the front-end facade: server input, app registration, PIN
// submission and one event stream that outlives individual pipelines.
type Session struct {
	svc     Service
	tracker *Tracker
	log     logging.Logger
	dismiss func()
	ctx     context.Context
	stop    context.CancelFunc
	queue   *eventQueue

	mu       sync.Mutex
	pipeline *Pipeline
	info     *models.AuthenticateInfo
	closed   bool
}

type SessionOption func(*Session)

func WithSessionLogger(l logging.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithSessionDismissHook(fn func()) SessionOption {
	return func(s *Session) { s.dismiss = fn }
}

func NewSession(svc Service, opts ...SessionOption) *Session {
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		svc:     svc,
		tracker: NewTracker(),
		log:     logging.Nop{},
		dismiss: func() {},
		ctx:     ctx,
		stop:    stop,
		queue:   newEventQueue(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetInput updates the readiness state. When the normalized domain no longer
// matches the registered app, the pending sign-in is dropped: its pipeline is
// closed and SubmitPIN needs a new Begin.
func (s *Session) SetInput(raw string) ReadinessState {
	st := s.tracker.SetInput(raw)

	s.mu.Lock()
	var old *Pipeline
	if s.info != nil && s.info.Domain != st.Domain.String() {
		old = s.pipeline
		s.pipeline = nil
		s.info = nil
	}
	s.mu.Unlock()

	if old != nil {
		old.Close()
		s.log.Info(context.Background(), "pending sign-in dropped", "domain", st.Domain.String())
	}
	return st
}

func (s *Session) Readiness() ReadinessState { return s.tracker.State() }

// Tracker exposes the readiness tracker for subscriptions.
func (s *Session) Tracker() *Tracker { return s.tracker }

// Begin registers an app on the server from the current input and prepares
// a pipeline for PINs. A pipeline from an earlier Begin is closed.
func (s *Session) Begin(ctx context.Context) (*models.AuthenticateInfo, error) {
	st := s.tracker.State()
	if !st.SignInEnabled {
		return nil, common.ErrInvalidDomain
	}
	if s.isClosed() {
		return nil, common.ErrClosed
	}

	info, err := s.svc.RegisterApp(ctx, st.Domain.String())
	if err != nil {
		return nil, classify(Stage("register"), err)
	}

	p := NewPipeline(s.ctx, *info, Deps{
		Exchanger: s.svc,
		Verifier:  s.svc,
		Users:     s.svc,
		Merger:    s.svc,
	}, WithLogger(s.log), WithDismissHook(s.dismiss), withQueue(s.queue))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		p.Close()
		return nil, common.ErrClosed
	}
	old := s.pipeline
	s.pipeline = p
	s.info = info
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.log.Info(ctx, "app registered", "domain", info.Domain)
	return info, nil
}

// SubmitPIN hands code to the current pipeline.
func (s *Session) SubmitPIN(code string) error {
	s.mu.Lock()
	p := s.pipeline
	closed := s.closed
	s.mu.Unlock()

	switch {
	case closed:
		return common.ErrClosed
	case p == nil:
		return fmt.Errorf("%w: call Begin first", common.ErrNoServerSet)
	}
	return p.Submit(code)
}

// Info is the current app registration, nil before Begin.
func (s *Session) Info() *models.AuthenticateInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *Session) State() PipelineState {
	s.mu.Lock()
	p := s.pipeline
	s.mu.Unlock()
	if p == nil {
		return PipelineState{Stage: StageIdle}
	}
	return p.Snapshot()
}

func (s *Session) Events() <-chan Event { return s.queue.out }

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the running attempt and closes the event stream.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	p := s.pipeline
	s.mu.Unlock()

	s.stop()
	if p != nil {
		p.Close()
	}
	s.queue.close()
}
