// Package lock implements page-level strict two-phase locking (2PL) for the
// storage engine.
//
// # Overview
//
// A transaction acquires locks as it touches pages and releases them all at
// once when it commits or aborts. Two modes are supported:
//
//   - [SharedLock]: required to read a page; compatible with other shared locks.
//   - [ExclusiveLock]: required to write a page; incompatible with all other locks.
//
// Locks are re-entrant. A shared holder asking for exclusive is upgraded as
// soon as it is the only holder of the page. Downgrading is never performed.
//
// # Components
//
// [LockManager] is the single public entry point. Internally it uses:
//
//   - [LockTable]: page -> lock state (holders plus a condition variable) and
//     transaction -> held pages.
//   - [DependencyGraph]: directed wait-for graph. An edge A->B means A waits
//     for a lock held by B. A cycle is a deadlock.
//
// # Acquisition
//
// [LockManager.LockPage] works under the page's own mutex:
//
//  1. If tid already holds a covering lock, return.
//  2. If no other transaction conflicts, grant (upgrading in place) and return.
//  3. Replace tid's wait-for edges with edges to the conflicting holders and
//     run a DFS from tid. If tid is on a cycle, fail with [ErrDeadlock].
//  4. Otherwise wait on the page's condition variable and go back to 1.
//
// Releases broadcast on the page's condition variable so waiters
// re-evaluate. There is no timeout: a waiter blocks until it is granted or
// its wait closes a cycle.
//
// # Lock ordering
//
// The page-table mutex is never held while a page mutex is taken. A page
// mutex may be held while taking the held-index mutex or the graph mutex,
// never the reverse.
package lock
