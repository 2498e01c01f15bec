// Package budget implements the retry governor: the single authority on
// whether a critic-requested retry is permitted, and the only mutable
// run-time counters in the engine. Both counters are finite and
// monotonic, which is what guarantees every run halts.
package budget

import "sync"

// Defaults mirror the usual deployment configuration.
const (
	DefaultCriticBudget = 2
	DefaultGlobalBudget = 10
)

// Decision is the governor's answer to a retry request.
type Decision int

const (
	// Allow permits the retry.
	Allow Decision = iota
	// DenyBudget means the requesting critic exhausted its own budget.
	// The global counter is untouched.
	DenyBudget
	// DenyGlobalBudget means the process-wide ceiling is exhausted. The
	// requesting critic's local counter keeps its increment so a denied
	// critic cannot route around the ceiling through later local
	// headroom.
	DenyGlobalBudget
)

// String returns the audit-log form of a decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyBudget:
		return "deny_budget"
	case DenyGlobalBudget:
		return "deny_global_budget"
	default:
		return "unknown"
	}
}

// Grant records one allowed retry for audit.
type Grant struct {
	CriticID string
	TargetID string
	// Attempt is the critic's local counter after this grant.
	Attempt int
	// GlobalCount is the process-wide counter after this grant.
	GlobalCount int
}

// Governor tracks per-critic and global retry counts against configured
// budgets. Counters never decrease and never reset mid-run. Requests are
// serialized under a mutex because critics in a parallel group may ask
// concurrently.
type Governor struct {
	mu sync.Mutex

	criticBudget  map[string]int
	defaultBudget int
	attempts      map[string]int

	globalBudget int
	globalCount  int

	ledger []Grant
}

// NewGovernor builds a governor with the given global budget and
// per-critic overrides. Critics without an override get
// DefaultCriticBudget.
func NewGovernor(globalBudget int, criticBudgets map[string]int) *Governor {
	g := &Governor{
		criticBudget:  make(map[string]int, len(criticBudgets)),
		defaultBudget: DefaultCriticBudget,
		attempts:      make(map[string]int),
		globalBudget:  globalBudget,
	}
	for id, budget := range criticBudgets {
		g.criticBudget[id] = budget
	}
	return g
}

// budgetFor returns the configured budget for a critic.
func (g *Governor) budgetFor(criticID string) int {
	if budget, ok := g.criticBudget[criticID]; ok {
		return budget
	}
	return g.defaultBudget
}

// RequestRetry decides whether criticID may trigger re-execution of
// targetID. The local counter is consulted first: a local denial costs
// nothing globally, while a global denial still costs the critic one
// local attempt.
func (g *Governor) RequestRetry(criticID, targetID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.attempts[criticID]+1 > g.budgetFor(criticID) {
		return DenyBudget
	}
	g.attempts[criticID]++

	if g.globalCount+1 > g.globalBudget {
		return DenyGlobalBudget
	}
	g.globalCount++

	g.ledger = append(g.ledger, Grant{
		CriticID:    criticID,
		TargetID:    targetID,
		Attempt:     g.attempts[criticID],
		GlobalCount: g.globalCount,
	})
	return Allow
}

// Attempts returns a critic's local counter.
func (g *Governor) Attempts(criticID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts[criticID]
}

// GlobalCount returns the process-wide counter.
func (g *Governor) GlobalCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.globalCount
}

// GlobalBudget returns the configured process-wide ceiling.
func (g *Governor) GlobalBudget() int {
	return g.globalBudget
}

// Ledger returns a copy of all allowed retries, in grant order.
func (g *Governor) Ledger() []Grant {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Grant, len(g.ledger))
	copy(out, g.ledger)
	return out
}
