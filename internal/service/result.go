package service

import "fmt"

// Result pairs the outcome of a primary operation with warnings from
// secondary writes that failed without failing the operation, such as
// recording search history or saving tag associations.
type Result[T any] struct {
	Value    T
	Warnings []string
}

// Warnf records a warning.
func (r *Result[T]) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// OK reports whether the operation finished without warnings.
func (r *Result[T]) OK() bool {
	return len(r.Warnings) == 0
}

