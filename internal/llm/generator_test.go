package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/models"
)

type recordingClient struct {
	reply string
	err   error
	got   []ChatMessage
	block bool
}

func (r *recordingClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	r.got = messages
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.reply, r.err
}

func TestTemplates_Render(t *testing.T) {
	tpl := DefaultTemplates()
	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}

	msgs, err := tpl.Render(PromptVars{Kind: Technical, Query: "reset password?", Context: "DOCS", Summary: "S", UserName: "Ana"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "DOCS")
	assert.Contains(t, msgs[0].Content, "Ana")
	assert.Contains(t, msgs[0].Content, "S")
	assert.Equal(t, ChatMessage{Role: "user", Content: "reset password?"}, msgs[1])

	msgs, err = tpl.Render(PromptVars{Kind: Smalltalk, Query: "how are you", Messages: history})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0].Content, "none")
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "how are you", msgs[3].Content)

	msgs, err = tpl.Render(PromptVars{Kind: Summary, Messages: history, Instruction: "Create a summary of the conversation above:"})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "Create a summary of the conversation above:", msgs[3].Content)

	_, err = tpl.Render(PromptVars{Kind: Kind(42)})
	assert.Error(t, err)
}

func TestPromptGenerator_Generate(t *testing.T) {
	c := &recordingClient{reply: "  Assistant: Open Settings, then Reset.  "}
	g := NewPromptGenerator(c, time.Second, nil)
	reply, err := g.Generate(context.Background(), PromptVars{Kind: Technical, Query: "q", Context: "c"})
	require.NoError(t, err)
	assert.Equal(t, "Open Settings, then Reset.", reply)
	assert.True(t, strings.HasPrefix(c.got[0].Content, "You are WRAITH"))
}

func TestPromptGenerator_failuresAreGenerationFailed(t *testing.T) {
	cases := map[string]*recordingClient{
		"client error": {err: errors.New("connection reset")},
		"empty reply":  {reply: "   "},
		"timeout":      {block: true},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewPromptGenerator(c, 20*time.Millisecond, nil)
			_, err := g.Generate(context.Background(), PromptVars{Kind: Smalltalk, Query: "hi"})
			require.Error(t, err)
			assert.Equal(t, apperr.GenerationFailed, apperr.KindOf(err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "summary", Summary.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
