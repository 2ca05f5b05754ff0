package domain

import "errors"

var (
	// ErrEmptyReply marks an agent response without reply text
	ErrEmptyReply = errors.New("agent response has no reply text")
	// ErrUnknownAction marks an agent action with an unrecognized type
	ErrUnknownAction = errors.New("agent response contains unknown action type")
	// ErrEmptyAction marks an agent action missing its required payload
	ErrEmptyAction = errors.New("agent action is missing its payload")
	// ErrUnknownDomain marks dispatch to a domain with no registered agent
	ErrUnknownDomain = errors.New("no agent registered for domain")
	// ErrTurnNotDiscardable marks a stop request that arrived after dispatch
	ErrTurnNotDiscardable = errors.New("turn already dispatched, cannot discard")
)
