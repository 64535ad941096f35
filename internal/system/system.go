package system

import (
	"fmt"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/codegen"
	"github.com/civitas-labs/agora/internal/content"
	"github.com/civitas-labs/agora/internal/intent"
	"github.com/civitas-labs/agora/internal/knowledge"
	"github.com/civitas-labs/agora/internal/ledger"
	"github.com/civitas-labs/agora/internal/manager"
	"github.com/civitas-labs/agora/internal/provider"
	"github.com/civitas-labs/agora/internal/search"
	"github.com/civitas-labs/agora/internal/store"
	"go.uber.org/zap"
)

// System is the composition root: it owns the agents, their wiring, and
// the workflow ledger, and exposes the two user-facing entry points.
type System struct {
	recognizer *intent.Recognizer
	manager    *manager.Manager
	contentGen *content.Generator
	codeGen    *codegen.Generator
	registry   *agent.Registry
	ledger     *ledger.Ledger

	store     *store.Store
	knowledge *knowledge.Graph
	index     *search.Index

	logger *zap.Logger
}

// Options carries the optional collaborators. Every field may be nil;
// the coordination core runs without any of them.
type Options struct {
	Store     *store.Store
	Knowledge *knowledge.Graph
	Index     *search.Index
	Mirror    ledger.Mirror
}

// New builds the agent topology. The registry drives capability lookups;
// the direct connections carry agent-to-agent messages.
func New(providers *provider.Router, opts Options, logger *zap.Logger) *System {
	registry := agent.NewRegistry(logger.Named("registry"))

	recognizer := intent.NewRecognizer(providers.ForAgent("intent-recognizer"), logger.Named("intent"))
	contentGen := content.NewGenerator(providers.ForAgent("content-generator"), logger.Named("content"))
	codeGen := codegen.NewGenerator(providers.ForAgent("code-generator"), logger.Named("codegen"))
	mgr := manager.New(registry, logger.Named("manager"))

	registry.Register(contentGen)
	registry.Register(codeGen)
	registry.Register(recognizer)
	registry.Register(mgr)

	mgr.ConnectTo(contentGen)
	mgr.ConnectTo(codeGen)
	mgr.ConnectTo(recognizer)
	contentGen.ConnectTo(mgr)
	codeGen.ConnectTo(mgr)
	recognizer.ConnectTo(mgr)

	return &System{
		recognizer: recognizer,
		manager:    mgr,
		contentGen: contentGen,
		codeGen:    codeGen,
		registry:   registry,
		ledger:     ledger.New(opts.Mirror),
		store:      opts.Store,
		knowledge:  opts.Knowledge,
		index:      opts.Index,
		logger:     logger,
	}
}

// Initialize brings every agent up with the shared credential. All four
// core agents are required; the first failure aborts startup.
func (s *System) Initialize(credential, language string) error {
	cfg := agent.InitConfig{Credential: credential, Language: language}
	for _, a := range []agent.Agent{s.recognizer, s.contentGen, s.codeGen, s.manager} {
		if err := a.Initialize(cfg); err != nil {
			return fmt.Errorf("initialize %s: %w", a.ID(), err)
		}
		s.logger.Info("agent ready",
			zap.String("agent", a.ID()),
			zap.String("role", string(a.Role())))
	}
	return nil
}

// Shutdown takes all agents offline.
func (s *System) Shutdown() {
	s.recognizer.Shutdown()
	s.contentGen.Shutdown()
	s.codeGen.Shutdown()
	s.manager.Shutdown()
}

// AgentStatus is one agent's identity and runtime snapshot.
type AgentStatus struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Role         agent.Role         `json:"role"`
	Capabilities []agent.Capability `json:"capabilities"`
	Status       agent.Status       `json:"status"`
}

// Agents returns a status snapshot of every agent in the system.
func (s *System) Agents() []AgentStatus {
	agents := []agent.Agent{s.recognizer, s.contentGen, s.codeGen, s.manager}
	out := make([]AgentStatus, 0, len(agents))
	for _, a := range agents {
		out = append(out, AgentStatus{
			ID:           a.ID(),
			Name:         a.Name(),
			Role:         a.Role(),
			Capabilities: a.Capabilities(),
			Status:       a.Status(),
		})
	}
	return out
}

// SearchEnabled reports whether the semantic index is wired in.
func (s *System) SearchEnabled() bool { return s.index != nil }

// StoreEnabled reports whether the artifact archive is wired in.
func (s *System) StoreEnabled() bool { return s.store != nil }
