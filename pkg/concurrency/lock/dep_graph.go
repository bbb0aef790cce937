package lock

import (
	"sync"

	"storekit/pkg/primitives"
)

// DependencyGraph tracks wait-for relationships between transactions for deadlock detection.
// An edge A -> B means transaction A is waiting for a lock held by B. A cycle means deadlock.
type DependencyGraph struct {
	edges map[primitives.TransactionID]map[primitives.TransactionID]struct{}
	mutex sync.RWMutex
}

// NewDependencyGraph creates an empty wait-for graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[primitives.TransactionID]map[primitives.TransactionID]struct{}),
	}
}

// AddEdge records that waiter is blocked on a lock held by holder.
func (dg *DependencyGraph) AddEdge(waiter, holder primitives.TransactionID) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	dg.addEdgeLocked(waiter, holder)
}

func (dg *DependencyGraph) addEdgeLocked(waiter, holder primitives.TransactionID) {
	if waiter == holder {
		return
	}
	if dg.edges[waiter] == nil {
		dg.edges[waiter] = make(map[primitives.TransactionID]struct{})
	}
	dg.edges[waiter][holder] = struct{}{}
}

// WaitFor replaces the outgoing edges of waiter with edges to holders and
// reports whether waiter now lies on a cycle. When it does, the new edges
// are removed again so the graph never retains a cycle.
func (dg *DependencyGraph) WaitFor(waiter primitives.TransactionID, holders []primitives.TransactionID) bool {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	delete(dg.edges, waiter)
	for _, h := range holders {
		dg.addEdgeLocked(waiter, h)
	}

	if dg.cycleFromLocked(waiter) {
		delete(dg.edges, waiter)
		return true
	}
	return false
}

// RemoveOutgoing drops every edge leaving tid. Called when tid stops waiting.
func (dg *DependencyGraph) RemoveOutgoing(tid primitives.TransactionID) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	delete(dg.edges, tid)
}

// RemoveTransaction completely removes a transaction from the dependency graph,
// both as a waiter and as a holder.
func (dg *DependencyGraph) RemoveTransaction(tid primitives.TransactionID) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	delete(dg.edges, tid)
	for waiter, holders := range dg.edges {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(dg.edges, waiter)
		}
	}
}

// HasCycleFrom reports whether a cycle is reachable from start and passes
// through it.
func (dg *DependencyGraph) HasCycleFrom(start primitives.TransactionID) bool {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	return dg.cycleFromLocked(start)
}

// HasCycle detects whether the graph contains any cycle.
func (dg *DependencyGraph) HasCycle() bool {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	visited := make(map[primitives.TransactionID]bool)
	recStack := make(map[primitives.TransactionID]bool)
	for tid := range dg.edges {
		if !visited[tid] && dg.hasCycleDFS(tid, visited, recStack) {
			return true
		}
	}
	return false
}

// cycleFromLocked runs a DFS from start and reports a back edge to start.
func (dg *DependencyGraph) cycleFromLocked(start primitives.TransactionID) bool {
	visited := make(map[primitives.TransactionID]bool)
	var reaches func(tid primitives.TransactionID) bool
	reaches = func(tid primitives.TransactionID) bool {
		visited[tid] = true
		for next := range dg.edges[tid] {
			if next == start {
				return true
			}
			if !visited[next] && reaches(next) {
				return true
			}
		}
		return false
	}
	return reaches(start)
}

// hasCycleDFS performs depth-first search using a recursion stack to track
// the current path. A neighbour already on the stack is a back edge.
func (dg *DependencyGraph) hasCycleDFS(tid primitives.TransactionID, visited, recStack map[primitives.TransactionID]bool) bool {
	visited[tid] = true
	recStack[tid] = true

	for neighbor := range dg.edges[tid] {
		if !visited[neighbor] {
			if dg.hasCycleDFS(neighbor, visited, recStack) {
				return true
			}
		} else if recStack[neighbor] {
			return true
		}
	}

	recStack[tid] = false
	return false
}

// GetWaitingTransactions returns the transactions that currently have
// outgoing edges.
func (dg *DependencyGraph) GetWaitingTransactions() []primitives.TransactionID {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	waiters := make([]primitives.TransactionID, 0, len(dg.edges))
	for tid := range dg.edges {
		waiters = append(waiters, tid)
	}
	return waiters
}

// WaitsFor returns the holders tid is waiting on.
func (dg *DependencyGraph) WaitsFor(tid primitives.TransactionID) []primitives.TransactionID {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	holders := make([]primitives.TransactionID, 0, len(dg.edges[tid]))
	for h := range dg.edges[tid] {
		holders = append(holders, h)
	}
	return holders
}
