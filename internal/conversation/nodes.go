package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/intent"
	"github.com/hyperjump/wraith/internal/llm"
	"github.com/hyperjump/wraith/internal/metrics"
	"github.com/hyperjump/wraith/internal/models"
)

// turn carries the per-turn scratch values next to the persisted state.
type turn struct {
	state     *models.ConversationState
	query     string
	sessionID string
	reply     string
	path      string // technical or smalltalk, for metrics
	noResults bool
	// err is a recoverable failure: the reply is an apology and state is still saved.
	err error
	// abort stops the turn without saving.
	abort error
}

// run drives the machine from Start to End and returns the visited states.
func (o *Orchestrator) run(ctx context.Context, t *turn) []State {
	cur := StateStart
	path := []State{cur}
	for cur != StateEnd {
		next := o.step(ctx, cur, t)
		if t.abort != nil {
			return path
		}
		mustTransition(cur, next)
		cur = next
		path = append(path, cur)
	}
	return path
}

func (o *Orchestrator) step(ctx context.Context, s State, t *turn) State {
	switch s {
	case StateStart:
		return o.start(t)
	case StateExtractName:
		return o.extractName(t)
	case StateRetrieve:
		return o.retrieve(ctx, t)
	case StateSmalltalk:
		return o.smalltalk(ctx, t)
	case StateRespond:
		return o.respond(t)
	case StateDecide:
		return o.opts.Policy.Decide(t.query, len(t.state.Messages))
	case StateSummarize:
		return o.summarize(ctx, t)
	default:
		panic("conversation: no node for state " + s.String())
	}
}

func (o *Orchestrator) start(t *turn) State {
	t.state.SessionID = t.sessionID
	t.state.Query = t.query
	t.state.Context = ""
	t.state.Response = ""
	if t.state.Messages == nil {
		t.state.Messages = []models.Message{}
	}
	return StateExtractName
}

func (o *Orchestrator) extractName(t *turn) State {
	if name := ExtractName(t.query); name != "" && !strings.EqualFold(name, t.state.UserName) {
		o.logger.Debug("user name updated", zap.String("session_id", t.sessionID), zap.String("name", name))
		t.state.UserName = name
	}
	if o.deps.Classifier.Classify(t.query) == intent.Technical {
		t.path = intent.Technical.String()
		return StateRetrieve
	}
	t.path = intent.Smalltalk.String()
	return StateSmalltalk
}

func (o *Orchestrator) retrieve(ctx context.Context, t *turn) State {
	docs, err := o.deps.Retriever.Retrieve(ctx, t.query)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.StoreUnavailable, apperr.StoreOperationFailed, apperr.InvalidInput:
			t.abort = err
			return StateEnd
		}
		o.logger.Warn("retrieval failed", zap.String("session_id", t.sessionID), zap.Error(err))
		t.err = asRecoverable(err, apperr.ScoringFailed)
		t.reply = apperr.MsgTechnicalFailure
		return StateRespond
	}
	t.state.Context = docs
	if strings.TrimSpace(docs) == "" {
		t.noResults = true
		t.reply = apperr.MsgNoResults
		return StateRespond
	}

	reply, err := o.deps.Generator.Generate(ctx, llm.PromptVars{
		Kind:     llm.Technical,
		Query:    t.query,
		Context:  docs,
		Summary:  t.state.Summary,
		UserName: t.state.UserName,
	})
	if err != nil {
		t.err = asRecoverable(err, apperr.GenerationFailed)
		t.reply = apperr.MsgTechnicalFailure
		return StateRespond
	}
	t.reply = reply
	return StateRespond
}

func (o *Orchestrator) smalltalk(ctx context.Context, t *turn) State {
	reply, err := o.deps.Generator.Generate(ctx, llm.PromptVars{
		Kind:     llm.Smalltalk,
		Query:    t.query,
		Messages: t.state.Messages,
		Summary:  t.state.Summary,
		UserName: t.state.UserName,
	})
	if err != nil {
		o.logger.Warn("smalltalk generation failed", zap.String("session_id", t.sessionID), zap.Error(err))
		t.err = asRecoverable(err, apperr.GenerationFailed)
		t.reply = apperr.MsgSmalltalkFailure
		return StateRespond
	}
	t.reply = reply
	return StateRespond
}

func (o *Orchestrator) respond(t *turn) State {
	t.state.Messages = append(t.state.Messages,
		models.Message{Role: models.RoleUser, Content: t.query},
		models.Message{Role: models.RoleAssistant, Content: t.reply},
	)
	t.state.Response = t.reply
	return StateDecide
}

// summarize extends the summary and prunes the history. On failure both are
// left untouched so nothing is lost.
func (o *Orchestrator) summarize(ctx context.Context, t *turn) State {
	summary, err := o.deps.Generator.Generate(ctx, llm.PromptVars{
		Kind:        llm.Summary,
		Messages:    t.state.Messages,
		Summary:     t.state.Summary,
		UserName:    t.state.UserName,
		Instruction: summaryInstruction(t.state.Summary),
	})
	if err != nil {
		o.logger.Warn("summary failed, keeping history",
			zap.String("session_id", t.sessionID),
			zap.Int("messages", len(t.state.Messages)),
			zap.Error(err),
		)
		return StateEnd
	}
	t.state.Summary = summary
	keep := o.opts.Policy.KeepAfterPrune
	if n := len(t.state.Messages); n > keep {
		t.state.Messages = append([]models.Message(nil), t.state.Messages[n-keep:]...)
	}
	metrics.SummariesTotal.Inc()
	return StateEnd
}

// asRecoverable keeps a classified error and gives anything else the fallback kind.
func asRecoverable(err error, fallback apperr.Kind) error {
	if apperr.KindOf(err) != apperr.Unknown {
		return err
	}
	return apperr.New(fallback, "generate_turn", err)
}
