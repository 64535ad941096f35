package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is an agent's lifecycle state.
//
//	INITIALIZING → IDLE ⇄ BUSY → (IDLE | ERROR) → OFFLINE
//
// ERROR is non-terminal and self-heals on the next successful task.
// OFFLINE is terminal.
type State string

const (
	StateInitializing State = "initializing"
	StateIdle         State = "idle"
	StateBusy         State = "busy"
	StateError        State = "error"
	StateOffline      State = "offline"
)

// Status is a snapshot of an agent's runtime state and counters.
type Status struct {
	State        State     `json:"state"`
	CurrentTask  string    `json:"current_task,omitempty"`
	LastActive   time.Time `json:"last_active,omitempty"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
}

// InitConfig is the shared one-time setup handed to every agent.
type InitConfig struct {
	Credential string
	Language   string
}

// Message is a lightweight point-to-point note between agents. There is
// no broker; delivery is a direct method call on the target.
type Message struct {
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Agent is the worker contract: identity, capability set, status, and a
// single task-execution entry point. ExecuteTask must never propagate an
// internal failure; it reports it as a failed TaskResult.
type Agent interface {
	ID() string
	Name() string
	Role() Role
	Capabilities() []Capability
	Status() Status
	Initialize(cfg InitConfig) error
	ExecuteTask(ctx context.Context, task *Task) *TaskResult
	ReceiveMessage(senderID string, msg *Message)
}

var (
	// ErrNotConnected is returned when a message targets an agent
	// outside the sender's connection set.
	ErrNotConnected = errors.New("target agent not connected")
	// ErrNoAgentAvailable is returned when no connected agent carries a
	// required capability.
	ErrNoAgentAvailable = errors.New("no agent available for capability")
)

// Core carries the state every agent shares: identity, status, the
// connection set, and the inbox. Concrete agents embed *Core and add
// their ExecuteTask.
type Core struct {
	id           string
	name         string
	role         Role
	capabilities []Capability

	mu          sync.RWMutex
	status      Status
	connections map[string]Agent
	inbox       []InboxEntry

	logger *zap.Logger
}

// InboxEntry is a received message with its sender.
type InboxEntry struct {
	SenderID string    `json:"sender_id"`
	Message  *Message  `json:"message"`
	Received time.Time `json:"received"`
}

// NewCore creates the shared agent core in the INITIALIZING state.
func NewCore(id, name string, role Role, caps []Capability, logger *zap.Logger) *Core {
	return &Core{
		id:           id,
		name:         name,
		role:         role,
		capabilities: caps,
		status:       Status{State: StateInitializing},
		connections:  make(map[string]Agent),
		logger:       logger,
	}
}

func (c *Core) ID() string   { return c.id }
func (c *Core) Name() string { return c.name }
func (c *Core) Role() Role   { return c.role }

// Capabilities returns a copy of the agent's capability set.
func (c *Core) Capabilities() []Capability {
	out := make([]Capability, len(c.capabilities))
	copy(out, c.capabilities)
	return out
}

// HasCapability reports whether the agent carries the given capability.
func (c *Core) HasCapability(cap Capability) bool {
	for _, have := range c.capabilities {
		if have == cap {
			return true
		}
	}
	return false
}

// Status returns a snapshot of the agent's status.
func (c *Core) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Logger exposes the agent's logger to embedding types.
func (c *Core) Logger() *zap.Logger { return c.logger }

// MarkReady moves the agent from INITIALIZING to IDLE. It is a no-op in
// any other state, so a failed Initialize leaves the status unaffected.
func (c *Core) MarkReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State == StateInitializing {
		c.status.State = StateIdle
		c.status.LastActive = time.Now()
	}
}

// BeginTask transitions to BUSY and records the task in flight.
func (c *Core) BeginTask(task *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = StateBusy
	c.status.CurrentTask = task.ID
	c.status.LastActive = time.Now()
}

// EndTask leaves BUSY: IDLE on success, ERROR on failure. A success also
// heals a prior ERROR state.
func (c *Core) EndTask(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.CurrentTask = ""
	c.status.LastActive = time.Now()
	if success {
		c.status.SuccessCount++
		c.status.State = StateIdle
	} else {
		c.status.ErrorCount++
		c.status.State = StateError
	}
}

// RecordError increments the error counter without a task transition.
// Used by coordinators whose failures happen outside ExecuteTask.
func (c *Core) RecordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.ErrorCount++
}

// Shutdown moves the agent to the terminal OFFLINE state.
func (c *Core) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = StateOffline
	c.status.CurrentTask = ""
}

// ConnectTo adds another agent to the connection set. Connections are
// non-owning references used for messaging and capability lookups.
func (c *Core) ConnectTo(other Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections[other.ID()] = other
}

// Connected returns the connected agent with the given ID.
func (c *Core) Connected(id string) (Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.connections[id]
	return a, ok
}

// Connections returns the connected agents in registration-independent
// order.
func (c *Core) Connections() []Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Agent, 0, len(c.connections))
	for _, a := range c.connections {
		out = append(out, a)
	}
	return out
}

// SendMessage delivers a message to a connected agent. It fails with
// ErrNotConnected when the target is not in the connection set.
func (c *Core) SendMessage(targetID string, msg *Message) error {
	c.mu.RLock()
	target, ok := c.connections[targetID]
	c.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	target.ReceiveMessage(c.id, msg)
	return nil
}

// ReceiveMessage appends to the inbox. Concrete agents may override this
// to react to specific message kinds.
func (c *Core) ReceiveMessage(senderID string, msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, InboxEntry{
		SenderID: senderID,
		Message:  msg,
		Received: time.Now(),
	})
}

// Inbox returns a copy of all received messages.
func (c *Core) Inbox() []InboxEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]InboxEntry, len(c.inbox))
	copy(out, c.inbox)
	return out
}
