package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRetryLocalBudget(t *testing.T) {
	g := NewGovernor(10, map[string]int{"critic": 2})

	assert.Equal(t, Allow, g.RequestRetry("critic", "target"))
	assert.Equal(t, Allow, g.RequestRetry("critic", "target"))
	assert.Equal(t, DenyBudget, g.RequestRetry("critic", "target"))
	assert.Equal(t, DenyBudget, g.RequestRetry("critic", "target"), "denial is permanent")

	assert.Equal(t, 2, g.Attempts("critic"), "local counter never exceeds budget")
	assert.Equal(t, 2, g.GlobalCount())
}

func TestRequestRetryLocalDenialIsFreeGlobally(t *testing.T) {
	g := NewGovernor(10, map[string]int{"critic": 0})

	assert.Equal(t, DenyBudget, g.RequestRetry("critic", "target"))
	assert.Equal(t, 0, g.GlobalCount(), "local denial must not consume global budget")
	assert.Equal(t, 0, g.Attempts("critic"))
}

func TestRequestRetryGlobalBudget(t *testing.T) {
	g := NewGovernor(1, nil)

	assert.Equal(t, Allow, g.RequestRetry("a", "target"))
	assert.Equal(t, DenyGlobalBudget, g.RequestRetry("b", "target"))

	assert.Equal(t, 1, g.Attempts("b"), "global denial still costs the critic a local attempt")
	assert.Equal(t, 1, g.GlobalCount(), "global counter never exceeds budget")
}

func TestRequestRetryZeroGlobalBudget(t *testing.T) {
	g := NewGovernor(0, nil)

	assert.Equal(t, DenyGlobalBudget, g.RequestRetry("critic", "target"))
	assert.Equal(t, 0, g.GlobalCount())
	assert.Equal(t, 1, g.Attempts("critic"))
}

func TestDefaultCriticBudget(t *testing.T) {
	g := NewGovernor(10, nil)

	assert.Equal(t, Allow, g.RequestRetry("critic", "target"))
	assert.Equal(t, Allow, g.RequestRetry("critic", "target"))
	assert.Equal(t, DenyBudget, g.RequestRetry("critic", "target"))
}

func TestLedger(t *testing.T) {
	g := NewGovernor(10, map[string]int{"a": 1, "b": 1})

	require.Equal(t, Allow, g.RequestRetry("a", "t1"))
	require.Equal(t, Allow, g.RequestRetry("b", "t2"))
	require.Equal(t, DenyBudget, g.RequestRetry("a", "t1"))

	ledger := g.Ledger()
	require.Len(t, ledger, 2, "only allowed retries are recorded")
	assert.Equal(t, Grant{CriticID: "a", TargetID: "t1", Attempt: 1, GlobalCount: 1}, ledger[0])
	assert.Equal(t, Grant{CriticID: "b", TargetID: "t2", Attempt: 1, GlobalCount: 2}, ledger[1])
}

func TestConcurrentRequests(t *testing.T) {
	g := NewGovernor(5, map[string]int{"critic": 100})

	var wg sync.WaitGroup
	allowed := make([]bool, 20)
	for i := range allowed {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allowed[i] = g.RequestRetry("critic", "target") == Allow
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 5, count, "exactly the global budget may be granted")
	assert.Equal(t, 5, g.GlobalCount())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny_budget", DenyBudget.String())
	assert.Equal(t, "deny_global_budget", DenyGlobalBudget.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
