package agent

import (
	"context"
	"fmt"

	"github.com/easyislanders/concierge/internal/domain"
)

// Agent handles turns for one business vertical
type Agent interface {
	// Domain returns the vertical this agent serves
	Domain() domain.BusinessDomain
	// RequiredSlots lists the slots that must be filled before dispatch,
	// in ask order
	RequiredSlots() []string
	// Handle executes one dispatched turn
	Handle(ctx context.Context, req domain.AgentRequest) (domain.AgentResponse, error)
}

// Registry maps business domains to their agents
type Registry struct {
	agents map[domain.BusinessDomain]Agent
}

// NewRegistry creates a registry from the given agents
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[domain.BusinessDomain]Agent, len(agents))}
	for _, a := range agents {
		r.agents[a.Domain()] = a
	}
	return r
}

// Get returns the agent for a domain
func (r *Registry) Get(d domain.BusinessDomain) (Agent, error) {
	a, ok := r.agents[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, d)
	}
	return a, nil
}

// RequiredSlots returns the slot list for a domain, or nil when the domain
// is not registered
func (r *Registry) RequiredSlots(d domain.BusinessDomain) []string {
	a, ok := r.agents[d]
	if !ok {
		return nil
	}
	return a.RequiredSlots()
}

// Domains lists the registered domains
func (r *Registry) Domains() []domain.BusinessDomain {
	out := make([]domain.BusinessDomain, 0, len(r.agents))
	for d := range r.agents {
		out = append(out, d)
	}
	return out
}
