package signin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/logging"
	"github.com/google/uuid"
)

type TokenExchanger interface {
	ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error)
}

// CredentialsVerifier resolves the account behind a token. The returned
// time is the server's view of "now" and orders concurrent merges.
type CredentialsVerifier interface {
	VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error)
}

// UserDirectory finds a locally known account, (nil, nil) when absent.
type UserDirectory interface {
	LookupUser(ctx context.Context, domain, id string) (*models.User, error)
}

type CredentialMerger interface {
	Merge(ctx context.Context, user *models.User, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error)
}

// Deps are the collaborators of a Pipeline. services.AuthService implements
// all of them.
type Deps struct {
	Exchanger TokenExchanger
	Verifier  CredentialsVerifier
	Users     UserDirectory
	Merger    CredentialMerger
}

type Stage string

const (
	StageIdle       Stage = "idle"
	StageExchanging Stage = "exchange"
	StageVerifying  Stage = "verify"
	StageLookup     Stage = "lookup"
	StagePersisting Stage = "persist"
)

// PipelineState is a snapshot of the UI-facing state.
type PipelineState struct {
	IsAuthenticating bool
	Stage            Stage
	// Err is the error of the last finished attempt, nil after success or
	// while an attempt runs.
	Err error
}

// Pipeline exchanges PIN codes for stored credentials, one attempt at a
// time. A Submit while an attempt is running cancels it; the cancelled
// attempt publishes nothing and its merge transaction is rolled back.
type Pipeline struct {
	info    models.AuthenticateInfo
	deps    Deps
	log     logging.Logger
	dismiss func()

	parent    context.Context
	queue     *eventQueue
	ownsQueue bool

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  PipelineState
	closed bool

	wg sync.WaitGroup
}

type PipelineOption func(*Pipeline)

func WithLogger(l logging.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// WithDismissHook sets a func called each time a PIN is accepted, so a
// front end can close its PIN entry.
func WithDismissHook(fn func()) PipelineOption {
	return func(p *Pipeline) { p.dismiss = fn }
}

// withQueue makes the pipeline publish into a queue it does not own.
func withQueue(q *eventQueue) PipelineOption {
	return func(p *Pipeline) {
		p.queue = q
		p.ownsQueue = false
	}
}

// NewPipeline binds a pipeline to one app registration. Attempts run under
// ctx and stop when it is cancelled.
func NewPipeline(ctx context.Context, info models.AuthenticateInfo, deps Deps, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		info:    info,
		deps:    deps,
		log:     logging.Nop{},
		dismiss: func() {},
		parent:  ctx,
		state:   PipelineState{Stage: StageIdle},
	}
	for _, o := range opts {
		o(p)
	}
	if p.queue == nil {
		p.queue = newEventQueue()
		p.ownsQueue = true
	}
	p.log = p.log.With("domain", info.Domain)
	return p
}

// Events is the ordered outcome stream. It is closed by Close.
func (p *Pipeline) Events() <-chan Event {
	return p.queue.out
}

func (p *Pipeline) Snapshot() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Submit starts an attempt for code, superseding any running one. A blank
// code is rejected with common.ErrEmptyPIN and changes nothing.
func (p *Pipeline) Submit(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return common.ErrEmptyPIN
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return common.ErrClosed
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel
	p.state = PipelineState{IsAuthenticating: true, Stage: StageExchanging}

	id := uuid.NewString()
	p.queue.push(Event{Kind: EventAuthenticating, AttemptID: id, Domain: p.info.Domain})
	p.wg.Add(1)
	p.mu.Unlock()

	p.dismiss()

	go p.run(ctx, cancel, gen, id, code)
	return nil
}

func (p *Pipeline) run(ctx context.Context, cancel context.CancelFunc, gen uint64, id, code string) {
	defer p.wg.Done()
	defer cancel()

	log := p.log.With("attempt", id)
	log.Info(ctx, "pin submitted")

	token, err := p.deps.Exchanger.ExchangeToken(ctx, p.info, code)
	if err != nil {
		p.fail(ctx, log, gen, id, StageExchanging, err)
		return
	}

	if !p.advance(gen, StageVerifying) {
		return
	}
	account, verifiedAt, err := p.deps.Verifier.VerifyCredentials(ctx, p.info.Domain, token.AccessToken)
	if err != nil {
		p.fail(ctx, log, gen, id, StageVerifying, err)
		return
	}

	if !p.advance(gen, StageLookup) {
		return
	}
	user, err := p.deps.Users.LookupUser(ctx, p.info.Domain, account.ID)
	if err != nil {
		p.fail(ctx, log, gen, id, StageLookup, fmt.Errorf("%w: %w", common.ErrPersistence, err))
		return
	}
	if user == nil {
		p.fail(ctx, log, gen, id, StageLookup, fmt.Errorf("%w: account %s unknown locally", common.ErrBadCredentials, account.ID))
		return
	}

	if !p.advance(gen, StagePersisting) {
		return
	}
	rec, err := p.deps.Merger.Merge(ctx, user, models.NewAuthenticationProperty(p.info, user, token), verifiedAt)
	if err != nil {
		p.fail(ctx, log, gen, id, StagePersisting, err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isLatest(gen) {
		log.Debug(ctx, "superseded attempt finished")
		return
	}
	p.state = PipelineState{Stage: StageIdle}
	p.queue.push(Event{
		Kind:           EventAuthenticated,
		AttemptID:      id,
		Domain:         p.info.Domain,
		Account:        account,
		Authentication: rec,
	})
	log.Info(ctx, "signed in", "user_id", account.ID, "username", account.Username)
}

// isLatest must be called with p.mu held.
func (p *Pipeline) isLatest(gen uint64) bool {
	return !p.closed && gen == p.gen
}

func (p *Pipeline) advance(gen uint64, stage Stage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isLatest(gen) {
		return false
	}
	p.state.Stage = stage
	return true
}

func (p *Pipeline) fail(ctx context.Context, log logging.Logger, gen uint64, id string, stage Stage, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isLatest(gen) {
		log.Debug(ctx, "superseded attempt failed", "stage", string(stage), "error", err)
		return
	}

	err = classify(stage, err)
	p.state = PipelineState{Stage: StageIdle, Err: err}
	p.queue.push(Event{Kind: EventError, AttemptID: id, Domain: p.info.Domain, Err: err})
	log.Warn(ctx, "sign-in failed", "stage", string(stage), "error", err)
}

// Close cancels the running attempt, waits for it and closes the event
// stream when the pipeline owns it. Safe to call more than once.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.state = PipelineState{Stage: StageIdle}
	p.mu.Unlock()

	p.wg.Wait()
	if p.ownsQueue {
		p.queue.close()
	}
}
