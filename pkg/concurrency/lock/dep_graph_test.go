package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storekit/pkg/primitives"
)

func TestDependencyGraph_WaitForDetectsCycle(t *testing.T) {
	dg := NewDependencyGraph()

	assert.False(t, dg.WaitFor(tx1, []primitives.TransactionID{tx2}))
	assert.False(t, dg.WaitFor(tx2, []primitives.TransactionID{tx3}))
	assert.True(t, dg.WaitFor(tx3, []primitives.TransactionID{tx1}))

	assert.Empty(t, dg.WaitsFor(tx3), "edges of the refused waiter are dropped")
	assert.False(t, dg.HasCycle())
}

func TestDependencyGraph_WaitForReplacesEdges(t *testing.T) {
	dg := NewDependencyGraph()

	dg.WaitFor(tx1, []primitives.TransactionID{tx2, tx3})
	assert.ElementsMatch(t, []primitives.TransactionID{tx2, tx3}, dg.WaitsFor(tx1))

	dg.WaitFor(tx1, []primitives.TransactionID{tx3})
	assert.Equal(t, []primitives.TransactionID{tx3}, dg.WaitsFor(tx1))
}

func TestDependencyGraph_CycleNotThroughStart(t *testing.T) {
	dg := NewDependencyGraph()
	dg.AddEdge(tx2, tx3)
	dg.AddEdge(tx3, tx2)

	assert.True(t, dg.HasCycle())
	assert.False(t, dg.HasCycleFrom(tx1))
	assert.False(t, dg.WaitFor(tx1, []primitives.TransactionID{tx2}), "tx1 only reaches a cycle it is not on")
}

func TestDependencyGraph_RemoveTransaction(t *testing.T) {
	dg := NewDependencyGraph()
	dg.AddEdge(tx1, tx2)
	dg.AddEdge(tx3, tx2)
	dg.AddEdge(tx2, tx1)
	assert.True(t, dg.HasCycleFrom(tx1))

	dg.RemoveTransaction(tx2)
	assert.False(t, dg.HasCycle())
	assert.Empty(t, dg.GetWaitingTransactions())
}

func TestDependencyGraph_SelfEdgeIgnored(t *testing.T) {
	dg := NewDependencyGraph()
	dg.AddEdge(tx1, tx1)
	assert.False(t, dg.HasCycle())
	assert.Empty(t, dg.WaitsFor(tx1))
}
