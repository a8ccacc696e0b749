package retry

import "github.com/tomashaas/retrieve-core/pkg/failure"

// Result is the outcome of a Retry call: the value on success, the last
// classified error on failure, and how many attempts it took.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

// NewSuccessResult wraps a successful value.
func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

func (r Result[T]) Value() T                        { return r.value }
func (r Result[T]) Err() failure.ClassifiedError     { return r.err }
func (r Result[T]) Attempts() int                    { return r.attempts }
func (r Result[T]) IsSuccess() bool                  { return r.err == nil }
func (r Result[T]) IsFailure() bool                  { return r.err != nil }
