package db

import (
	"strings"
)

// Query helps build SQL queries using bind parameters.
// Use Unsafe to write trusted parts of a query and Param/Params for values.
// The final query and parameters can be retrieved using the Get method.
//
// The zero value is ready to use.
type Query struct {
	b      strings.Builder
	params []any
}

// Unsafe writes a non-parameterized part of a query.
func (q *Query) Unsafe(s string) {
	q.b.WriteString(s)
}

// Param writes a parameterized part of a query.
func (q *Query) Param(v any) {
	q.b.WriteString("?")
	q.params = append(q.params, v)
}

// Params writes multiple parameterized parts of a query seperated by commas.
func (q *Query) Params(v ...any) {
	for i, p := range v {
		if i > 0 {
			q.b.WriteString(", ")
		}
		q.Param(p)
	}
}

// In writes an "IN (...)" clause for the given values.
func In[T any](q *Query, column string, v []T) {
	q.Unsafe(column)
	q.Unsafe(" IN (")
	for i, p := range v {
		if i > 0 {
			q.Unsafe(", ")
		}
		q.Param(p)
	}
	q.Unsafe(")")
}

// Get returns the constructed query and parameter values.
func (q *Query) Get() (string, []any) {
	return q.b.String(), q.params
}
