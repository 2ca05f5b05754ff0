package domain

import (
	"time"

	"github.com/google/uuid"
)

// AgentRequest is the fixed contract from supervisor to domain agent.
// It is immutable: agents receive a value, never a pointer.
type AgentRequest struct {
	ThreadID    uuid.UUID         `json:"threadId"`
	ClientMsgID uuid.UUID         `json:"clientMsgId"`
	Intent      string            `json:"intent"`
	Input       map[string]string `json:"input"`
	Context     AgentContext      `json:"context"`
}

// AgentContext carries the ambient request context an agent may consult
type AgentContext struct {
	UserID    string    `json:"userId"`
	Locale    string    `json:"locale"`
	Time      time.Time `json:"time"`
	Retrieved string    `json:"retrieved"`
	Summary   string    `json:"summary"`
}

// AgentResponse is what a domain agent returns. Agents never mutate shared
// state directly: every side effect is expressed as a returned Action that
// the supervisor or gateway applies.
type AgentResponse struct {
	ReplyText string            `json:"replyText"`
	Actions   []Action          `json:"actions,omitempty"`
	Traces    map[string]string `json:"traces,omitempty"`
}

// Action is a typed capability invocation returned by an agent
type Action struct {
	Type ActionType `json:"type"`
	// Listings is set for show_listings actions
	Listings []Listing `json:"listings,omitempty"`
	// Fact is set for remember_fact actions
	Fact *FactInput `json:"fact,omitempty"`
	// Target is set for request_handoff actions
	Target BusinessDomain `json:"target,omitempty"`
	// Text is set for suggest_followup actions
	Text string `json:"text,omitempty"`
}

// Validate enforces the agent response contract. A malformed response is
// fatal for the turn and is surfaced as an error envelope, never returned to
// the caller as if it were a valid reply.
func (r AgentResponse) Validate() error {
	if r.ReplyText == "" {
		return ErrEmptyReply
	}
	for i := range r.Actions {
		a := r.Actions[i]
		if !a.Type.IsValid() {
			return ErrUnknownAction
		}
		switch a.Type {
		case ActionShowListings:
			if len(a.Listings) == 0 {
				return ErrEmptyAction
			}
		case ActionRememberFact:
			if a.Fact == nil || a.Fact.Subject == "" || a.Fact.Predicate == "" {
				return ErrEmptyAction
			}
			if a.Fact.Confidence < 0 || a.Fact.Confidence > 1 {
				return ErrEmptyAction
			}
		case ActionRequestHandoff:
			if !a.Target.IsValid() {
				return ErrEmptyAction
			}
		case ActionSuggestFollowup:
			if a.Text == "" {
				return ErrEmptyAction
			}
		}
	}
	return nil
}
