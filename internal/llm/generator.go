// Package llm renders conversation prompts and sends them to a chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/models"
)

// Kind selects the prompt used for a generation.
type Kind int

const (
	Technical Kind = iota
	Smalltalk
	Summary
)

func (k Kind) String() string {
	switch k {
	case Technical:
		return "technical"
	case Smalltalk:
		return "smalltalk"
	case Summary:
		return "summary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PromptVars carries everything a prompt may reference.
type PromptVars struct {
	Kind     Kind
	Query    string
	Context  string
	Messages []models.Message
	Summary  string
	UserName string
	// Instruction is appended as the final user message of a Summary prompt.
	Instruction string
}

// Generator produces reply text for a set of prompt variables.
type Generator interface {
	Generate(ctx context.Context, vars PromptVars) (string, error)
}

// ChatMessage is one message sent to a chat model.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatClient is a chat-completion backend.
type ChatClient interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}

// PromptGenerator renders prompts with Templates and calls a ChatClient.
// Every failure is returned as GenerationFailed.
type PromptGenerator struct {
	client    ChatClient
	templates *Templates
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPromptGenerator creates a PromptGenerator. timeout <= 0 disables the deadline.
func NewPromptGenerator(client ChatClient, timeout time.Duration, logger *zap.Logger) *PromptGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptGenerator{client: client, templates: DefaultTemplates(), timeout: timeout, logger: logger}
}

// Generate renders the prompt for vars.Kind and returns the model's reply.
func (g *PromptGenerator) Generate(ctx context.Context, vars PromptVars) (string, error) {
	op := "generate_" + vars.Kind.String()
	messages, err := g.templates.Render(vars)
	if err != nil {
		return "", apperr.New(apperr.GenerationFailed, op, err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := g.client.Chat(ctx, messages)
	if err != nil {
		g.logger.Warn("generation failed", zap.String("kind", vars.Kind.String()), zap.Error(err))
		return "", apperr.New(apperr.GenerationFailed, op, err)
	}
	reply = cleanReply(reply)
	if reply == "" {
		return "", apperr.New(apperr.GenerationFailed, op, errors.New("model returned an empty reply"))
	}
	g.logger.Debug("generated",
		zap.String("kind", vars.Kind.String()),
		zap.Int("prompt_messages", len(messages)),
		zap.Int("reply_len", len(reply)),
		zap.Duration("took", time.Since(start)),
	)
	return reply, nil
}

// cleanReply trims whitespace and a leading speaker label the model sometimes adds.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"Assistant:", "WRAITH:", "Wraith:"} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	return s
}
