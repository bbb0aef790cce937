package dberror

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category classifies errors by what went wrong and how a caller should react.
type Category int

const (
	// CategoryFormat covers malformed or truncated page bytes, unknown schema
	// types and mismatched field types. These indicate corrupt data or a
	// programming error and are never retried.
	CategoryFormat Category = iota

	// CategoryCapacity covers inserts into a full page or node, deletes of an
	// unoccupied slot and records that belong to a different page.
	CategoryCapacity

	// CategoryLookup covers unknown tables, pages and fields and index misses.
	CategoryLookup

	// CategoryConcurrency covers detected deadlocks and a buffer pool that
	// cannot evict. The caller must abort the whole transaction.
	CategoryConcurrency

	// CategoryIO covers failed reads and writes against storage.
	CategoryIO
)

func (c Category) String() string {
	switch c {
	case CategoryFormat:
		return "FormatError"
	case CategoryCapacity:
		return "CapacityError"
	case CategoryLookup:
		return "LookupError"
	case CategoryConcurrency:
		return "ConcurrencyError"
	case CategoryIO:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// DBError represents a structured storage error with context information.
//
// Package level sentinels (heap.ErrPageFull, lock.ErrDeadlock, ...) are
// DBError values. Callers return copies enriched through WithDetailf or
// WithOperation, and match them with errors.Is, which compares codes.
type DBError struct {
	// Code is a unique identifier for this error type (e.g., "DEADLOCK_DETECTED", "PAGE_FULL").
	Code string

	// Category classifies the error.
	Category Category

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides context about the specific error instance.
	Detail string

	// Operation identifies the operation that failed, such as "InsertTuple" or "LockPage".
	Operation string

	// Component identifies where the error originated, such as "BufferPool" or "HeapPage".
	Component string

	// Cause is the underlying error, if any.
	Cause error

	stack errors.StackTrace
}

// New creates a DBError with the given category, code and message.
func New(category Category, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		stack:    callers(),
	}
}

// Wrap wraps err with storage context. If err already is a DBError a copy is
// returned with the operation and component filled in where they were empty.
// Other errors are recorded as the cause of a new error in the given category.
func Wrap(err error, category Category, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	var dbErr *DBError
	if errors.As(err, &dbErr) {
		c := dbErr.clone()
		if c.Operation == "" {
			c.Operation = operation
		}
		if c.Component == "" {
			c.Component = component
		}
		return c
	}

	return &DBError{
		Code:      code,
		Category:  category,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     errors.WithStack(err),
		stack:     callers(),
	}
}

// IOError wraps a failed storage read or write.
func IOError(err error, operation, component string) *DBError {
	return Wrap(err, CategoryIO, "IO_ERROR", operation, component)
}

// WithDetailf returns a copy of e carrying a formatted detail message and a
// fresh stack trace. The receiver is not modified.
func (e *DBError) WithDetailf(format string, args ...any) *DBError {
	c := e.clone()
	c.Detail = fmt.Sprintf(format, args...)
	return c
}

// WithOperation returns a copy of e tagged with operation and component.
func (e *DBError) WithOperation(operation, component string) *DBError {
	c := e.clone()
	c.Operation = operation
	c.Component = component
	return c
}

// WithCause returns a copy of e that wraps cause.
func (e *DBError) WithCause(cause error) *DBError {
	c := e.clone()
	c.Cause = errors.WithStack(cause)
	return c
}

func (e *DBError) clone() *DBError {
	c := *e
	c.stack = callers()
	return &c
}

// Error implements the error interface.
//
// The format follows the pattern:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *DBError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DBError with the same code.
func (e *DBError) Is(target error) bool {
	t, ok := target.(*DBError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// FormatStack returns a human-readable stack trace of where e was created.
func (e *DBError) FormatStack() string {
	if len(e.stack) == 0 {
		return ""
	}
	return fmt.Sprintf("Stack trace:%+v\n", e.stack)
}

// IsCategory reports whether any DBError in err's chain has the category c.
func IsCategory(err error, c Category) bool {
	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		return false
	}
	return dbErr.Category == c
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// callers records the stack of the function that created the DBError,
// dropping the frames that belong to this package.
func callers() errors.StackTrace {
	st := errors.New("").(stackTracer).StackTrace()
	if len(st) > 2 {
		return st[2:]
	}
	return st
}
