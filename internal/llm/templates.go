package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/hyperjump/wraith/internal/models"
)

const technicalSystem = `You are WRAITH, a technical assistant for Cisco collaboration products (Webex, CUCM, Expressway, CUBE).
{{- if .UserName}} You are talking with {{.UserName}}.{{end}}

Answer only from the documents below. If they do not contain the answer, say so and state what is missing.
Give procedures as numbered steps. Prefer official Cisco or Webex documentation when sources disagree.
Do not invent commands, settings or version numbers.

Documents:
{{.Context}}
{{- if .Summary}}

Conversation so far (summary):
{{.Summary}}
{{- end}}`

const smalltalkSystem = `You are WRAITH, a friendly assistant having a casual conversation
{{- if .UserName}} with {{.UserName}}{{end}}.
Reply with one short message. Never write the user's side of the conversation.

Private notes from earlier in the conversation. Use them for continuity but do not mention them unless asked for a recap:
{{if .Summary}}{{.Summary}}{{else}}none{{end}}`

const summarySystem = `Summarize the important facts, corrections and decisions from the conversation as bullet points.
Do not refer to the participants as user or assistant.`

// Templates holds the parsed system prompts.
type Templates struct {
	technical *template.Template
	smalltalk *template.Template
	summary   *template.Template
}

// DefaultTemplates parses the built-in prompts.
func DefaultTemplates() *Templates {
	return &Templates{
		technical: template.Must(template.New("technical").Parse(technicalSystem)),
		smalltalk: template.Must(template.New("smalltalk").Parse(smalltalkSystem)),
		summary:   template.Must(template.New("summary").Parse(summarySystem)),
	}
}

// Render builds the chat messages for vars.
//   - Technical: system prompt with documents, then the query.
//   - Smalltalk: system prompt, the history, then the query.
//   - Summary: system prompt, the history, then the instruction.
func (t *Templates) Render(vars PromptVars) ([]ChatMessage, error) {
	var tmpl *template.Template
	switch vars.Kind {
	case Technical:
		tmpl = t.technical
	case Smalltalk:
		tmpl = t.smalltalk
	case Summary:
		tmpl = t.summary
	default:
		return nil, fmt.Errorf("unknown prompt kind %d", int(vars.Kind))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", vars.Kind, err)
	}
	out := []ChatMessage{{Role: "system", Content: strings.TrimSpace(buf.String())}}

	switch vars.Kind {
	case Technical:
		out = append(out, ChatMessage{Role: "user", Content: vars.Query})
	case Smalltalk:
		out = append(out, history(vars.Messages)...)
		out = append(out, ChatMessage{Role: "user", Content: vars.Query})
	case Summary:
		out = append(out, history(vars.Messages)...)
		out = append(out, ChatMessage{Role: "user", Content: vars.Instruction})
	}
	return out, nil
}

func history(messages []models.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
