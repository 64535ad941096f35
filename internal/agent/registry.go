package agent

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps capabilities to the agents carrying them. It is populated
// once at wiring time; lookups use a first-registered-wins policy and
// tolerate zero or multiple matches.
type Registry struct {
	mu           sync.RWMutex
	byCapability map[Capability][]Agent
	agents       []Agent
	logger       *zap.Logger
}

// NewRegistry creates an empty capability registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byCapability: make(map[Capability][]Agent),
		logger:       logger,
	}
}

// Register indexes an agent under each of its capabilities.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = append(r.agents, a)
	for _, c := range a.Capabilities() {
		r.byCapability[c] = append(r.byCapability[c], a)
	}
	r.logger.Info("registered agent",
		zap.String("id", a.ID()),
		zap.String("name", a.Name()),
		zap.String("role", string(a.Role())))
}

// Find returns the first agent registered for the capability. When
// multiple agents match, the earliest registration wins.
func (r *Registry) Find(c Capability) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := r.byCapability[c]
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// All returns every registered agent in registration order.
func (r *Registry) All() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}
