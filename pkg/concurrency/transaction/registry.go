package transaction

import (
	"slices"
	"sync"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
)

var ErrTransactionNotFound = dberror.New(dberror.CategoryLookup, "TRANSACTION_NOT_FOUND", "transaction is not registered")

// TransactionRegistry tracks the context of every transaction that has
// touched the buffer pool and not yet completed.
type TransactionRegistry struct {
	contexts map[primitives.TransactionID]*TransactionContext
	mutex    sync.RWMutex
}

// NewTransactionRegistry creates a new transaction registry
func NewTransactionRegistry() *TransactionRegistry {
	return &TransactionRegistry{
		contexts: make(map[primitives.TransactionID]*TransactionContext),
	}
}

// Begin issues a new transaction id and registers its context.
func (tr *TransactionRegistry) Begin() *TransactionContext {
	ctx := NewTransactionContext(NewTransactionID())

	tr.mutex.Lock()
	tr.contexts[ctx.ID] = ctx
	tr.mutex.Unlock()

	return ctx
}

// Get retrieves a transaction context by ID
func (tr *TransactionRegistry) Get(tid primitives.TransactionID) (*TransactionContext, error) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	ctx, exists := tr.contexts[tid]
	if !exists {
		return nil, ErrTransactionNotFound.WithDetailf("%s", tid)
	}
	return ctx, nil
}

// GetOrCreate gets an existing context or creates a new one. Transactions
// whose ids were issued elsewhere register lazily through this.
func (tr *TransactionRegistry) GetOrCreate(tid primitives.TransactionID) *TransactionContext {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	ctx, exists := tr.contexts[tid]
	if exists {
		return ctx
	}

	ctx = NewTransactionContext(tid)
	tr.contexts[tid] = ctx
	return ctx
}

// Remove removes a transaction context from the registry
func (tr *TransactionRegistry) Remove(tid primitives.TransactionID) {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	delete(tr.contexts, tid)
}

// Count returns the number of registered transactions
func (tr *TransactionRegistry) Count() int {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()
	return len(tr.contexts)
}

// GetAllTransactionIDs returns all registered transaction IDs in ascending order.
func (tr *TransactionRegistry) GetAllTransactionIDs() []primitives.TransactionID {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	tids := make([]primitives.TransactionID, 0, len(tr.contexts))
	for tid := range tr.contexts {
		tids = append(tids, tid)
	}
	slices.Sort(tids)
	return tids
}
