// Package conversation runs one user turn through the intent, retrieval,
// generation and summarization state machine.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/intent"
	"github.com/hyperjump/wraith/internal/llm"
	"github.com/hyperjump/wraith/internal/metrics"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/session"
)

// Retriever returns the assembled context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Store      session.Store
	Locker     session.KeyLocker
	Retriever  Retriever
	Generator  llm.Generator
	Classifier *intent.Classifier
}

// Options tunes an Orchestrator.
type Options struct {
	Policy       Policy
	StoreTimeout time.Duration
}

// Orchestrator owns the turn pipeline. It is safe for concurrent use; turns of
// the same session are serialised by the Locker.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// New creates an Orchestrator. A nil Locker or Classifier gets a default.
func New(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if deps.Locker == nil {
		deps.Locker = session.NewLocker()
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(config.DefaultTechnicalKeywords)
	}
	if opts.Policy.MaxMessages == 0 {
		opts.Policy = DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}
}

// TurnResult is the outcome of RunTurn.
type TurnResult struct {
	Reply string
	// Path lists the states visited, Start through End.
	Path  []State
	State *models.ConversationState
	// Persisted is false when the turn aborted before saving.
	Persisted bool
}

// GenerateTurn runs one turn and returns the reply. The error is nil or an
// *apperr.Error; when it is set the reply is the user-facing message for it.
func (o *Orchestrator) GenerateTurn(ctx context.Context, sessionID, userText string) (string, error) {
	res, err := o.RunTurn(ctx, sessionID, userText)
	return res.Reply, err
}

// RunTurn is GenerateTurn with the visited path and final state.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, userText string) (*TurnResult, error) {
	start := time.Now()
	res := &TurnResult{}
	query := strings.TrimSpace(userText)
	sessionID = strings.TrimSpace(sessionID)

	if query == "" || sessionID == "" {
		err := apperr.New(apperr.InvalidInput, "generate_turn", errors.New("empty query or session id"))
		res.Reply = apperr.UserMessage(apperr.InvalidInput)
		o.finish("invalid", err, start)
		return res, err
	}

	unlock, err := o.deps.Locker.Lock(ctx, sessionID)
	if err != nil {
		err = apperr.New(apperr.StoreUnavailable, "session_lock", err)
		res.Reply = apperr.UserMessage(apperr.StoreUnavailable)
		o.finish("none", err, start)
		return res, err
	}
	defer unlock()

	state, err := o.load(ctx, sessionID)
	if err != nil {
		res.Reply = apperr.UserMessage(apperr.KindOf(err))
		o.finish("none", err, start)
		return res, err
	}

	t := &turn{state: state, query: query, sessionID: sessionID}
	res.Path = o.run(ctx, t)
	res.State = state

	if t.abort != nil {
		o.logger.Warn("turn aborted, state not persisted",
			zap.String("session_id", sessionID),
			zap.Error(t.abort),
		)
		res.Reply = apperr.UserMessage(apperr.KindOf(t.abort))
		o.finish(t.path, t.abort, start)
		return res, t.abort
	}

	if err := o.save(ctx, sessionID, state); err != nil {
		res.Reply = apperr.MsgStoreUnavailable
		o.finish(t.path, err, start)
		return res, err
	}
	res.Persisted = true
	res.Reply = state.Response

	if t.err != nil {
		o.finish(t.path, t.err, start)
		return res, t.err
	}
	outcome := "ok"
	if t.noResults {
		outcome = apperr.NoResultsFound.String()
	}
	metrics.ObserveTurn(t.path, outcome, start)
	return res, nil
}

func (o *Orchestrator) finish(path string, err error, start time.Time) {
	kind := apperr.KindOf(err).String()
	metrics.ObserveError(kind)
	metrics.ObserveTurn(path, kind, start)
}

func (o *Orchestrator) load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	lctx, cancel := o.storeContext(ctx)
	defer cancel()
	state, err := o.deps.Store.Load(lctx, sessionID)
	if err != nil {
		return nil, asStoreError("session_load", err)
	}
	if state == nil {
		state = models.NewConversationState(sessionID)
	}
	return state, nil
}

func (o *Orchestrator) save(ctx context.Context, sessionID string, state *models.ConversationState) error {
	sctx, cancel := o.storeContext(ctx)
	defer cancel()
	if err := o.deps.Store.Save(sctx, sessionID, state); err != nil {
		return asStoreError("session_save", err)
	}
	return nil
}

func (o *Orchestrator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, o.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

// asStoreError keeps a store kind or marks the error unavailable.
func asStoreError(op string, err error) error {
	switch apperr.KindOf(err) {
	case apperr.StoreUnavailable, apperr.StoreOperationFailed:
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return apperr.New(apperr.StoreOperationFailed, op, err)
}
