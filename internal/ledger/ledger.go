package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Workflow outcome states. A workflow is recorded exactly once, after it
// has finished.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one finished workflow: the command that started it and how
// it ended.
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Command      string    `json:"command"`
	InitialQuery string    `json:"initial_query,omitempty"`
	UserResponse string    `json:"user_response,omitempty"`
	Status       string    `json:"status"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Ledger is the in-memory, append-only workflow history. Every processed
// command lands here, successful or not; the mirror, when set, receives
// a best-effort copy.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
	mirror  Mirror
}

// Mirror receives a copy of every appended record. Mirror failures never
// affect the ledger itself.
type Mirror interface {
	Append(rec Record) error
}

// New creates an empty ledger. mirror may be nil.
func New(mirror Mirror) *Ledger {
	return &Ledger{mirror: mirror}
}

// NewID returns a fresh workflow ID.
func NewID() string { return uuid.New().String() }

// Append records a finished workflow. Missing IDs and timestamps are
// filled in.
func (l *Ledger) Append(rec Record) Record {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.CompletedAt
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()

	if l.mirror != nil {
		// Best effort; the in-memory ledger stays authoritative.
		_ = l.mirror.Append(rec)
	}
	return rec
}

// All returns the full history in append order.
func (l *Ledger) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// ByUser returns the history of one user in append order.
func (l *Ledger) ByUser(userID string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for _, rec := range l.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// Len reports the number of recorded workflows.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
