package service

import (
	"fmt"

	"lawerapp-backend/models"
)

// AgentRegistry is the fixed, ordered set of agents a Coordinator routes across.
// It is read-only after construction.
type AgentRegistry struct {
	agents []Agent
}

// NewAgentRegistry registers agents in order; registration order breaks priority ties
func NewAgentRegistry(agents ...Agent) (*AgentRegistry, error) {
	seen := make(map[string]bool, len(agents))
	registered := make([]Agent, 0, len(agents))
	for _, agent := range agents {
		if agent == nil {
			return nil, fmt.Errorf("nil agent in registry")
		}
		if seen[agent.Name()] {
			return nil, fmt.Errorf("duplicate agent name: %s", agent.Name())
		}
		seen[agent.Name()] = true
		registered = append(registered, agent)
	}
	return &AgentRegistry{agents: registered}, nil
}

// Agents returns a copy of the registered agents
func (r *AgentRegistry) Agents() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Select returns the lowest-priority agent accepting lc, first registered on ties
func (r *AgentRegistry) Select(lc models.LegalContext) (Agent, bool) {
	var selected Agent
	for _, agent := range r.agents {
		if !agent.CanHandle(lc) {
			continue
		}
		if selected == nil || agent.Priority() < selected.Priority() {
			selected = agent
		}
	}
	return selected, selected != nil
}
