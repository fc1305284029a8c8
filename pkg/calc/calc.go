// Package calc is the facade over the external WAR calculation service.
// One synchronous request per invocation, no retries, no streaming; the
// statistical formula behind the endpoint is opaque to the bot.
package calc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies calculation failures.
type ErrorKind string

const (
	// KindTimeout means the request exceeded the client deadline.
	KindTimeout ErrorKind = "timeout"

	// KindTransport means the request never produced an HTTP response.
	KindTransport ErrorKind = "transport"

	// KindRemote means the backend answered with a non-2xx status or an
	// unreadable body.
	KindRemote ErrorKind = "remote"
)

// Error is a classified calculation failure.
type Error struct {
	Kind   ErrorKind
	Status int // HTTP status for KindRemote, zero otherwise
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("calc: %s (status %d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("calc: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the error kind of err, or "" if err is not a calc error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Record is the flat request payload: calculation parameters plus every
// collected answer, keyed by question key.
type Record map[string]any

// NewRecord builds the base record for a calculation.
func NewRecord(calcType string, year int, league string, answers map[string]float64) Record {
	r := Record{
		"calcType": calcType,
		"year":     year,
		"league":   league,
	}
	for k, v := range answers {
		r[k] = v
	}
	return r
}
