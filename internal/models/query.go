package models

import (
	"fmt"
	"strings"
)

// TurnRequest is one user message for a session.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// Validate trims fields and rejects a missing session id. Blank text is left to
// the orchestrator, which reports it as invalid input with a user-facing reply.
func (r *TurnRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	return nil
}

// TurnResponse is the reply for one turn.
type TurnResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// RetrieveRequest asks for the assembled context of a query.
type RetrieveRequest struct {
	Query string `json:"query"`
}

// Validate ensures the query is not blank.
func (r *RetrieveRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}
