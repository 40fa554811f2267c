// Package apperr defines the error kinds surfaced by retrieval and conversation turns.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and end users.
type Kind int

const (
	// Unknown is any error that was not classified at a node boundary.
	Unknown Kind = iota
	InvalidInput
	StoreUnavailable
	StoreOperationFailed
	ScoringFailed
	GenerationFailed
	// NoResultsFound is reported, never returned, by a turn.
	NoResultsFound
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	InvalidInput:         "invalid_input",
	StoreUnavailable:     "store_unavailable",
	StoreOperationFailed: "store_operation_failed",
	ScoringFailed:        "scoring_failed",
	GenerationFailed:     "generation_failed",
	NoResultsFound:       "no_results_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// User-facing replies.
const (
	MsgEmptyQuery       = "Query cannot be empty."
	MsgStoreUnavailable = "Unable to connect to the database server. Please try again in a few moments."
	MsgStoreOperation   = "An error occurred while querying the database. The query might be invalid or the index is missing."
	MsgTechnicalFailure = "Sorry, I encountered an error processing your technical query."
	MsgSmalltalkFailure = "Sorry, I'm having trouble chatting right now."
	MsgNoResults        = "Sorry, I could not find relevant documents for your question."
	MsgUnknown          = "Something went wrong. Please try again."
)

// Error carries a Kind, the operation that failed, and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err with kind and op. A nil err still produces an error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: ScoringFailed}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// UserMessage returns the reply shown to users for kind.
func UserMessage(kind Kind) string {
	switch kind {
	case InvalidInput:
		return MsgEmptyQuery
	case StoreUnavailable:
		return MsgStoreUnavailable
	case StoreOperationFailed:
		return MsgStoreOperation
	case ScoringFailed, GenerationFailed:
		return MsgTechnicalFailure
	case NoResultsFound:
		return MsgNoResults
	default:
		return MsgUnknown
	}
}
