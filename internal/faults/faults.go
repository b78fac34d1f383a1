// Package faults is the error vocabulary of the ingestion and query
// pipelines. Every stage wraps its failures in a Fault so the orchestrator
// can map them to user-facing messages without inspecting provider errors.
package faults

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	Extraction       Kind = "EXTRACTION_ERROR"
	Embedding        Kind = "EMBEDDING_ERROR"
	RateLimit        Kind = "RATE_LIMIT_ERROR"
	IndexUnavailable Kind = "INDEX_UNAVAILABLE_ERROR"
	Timeout          Kind = "TIMEOUT_ERROR"
	Configuration    Kind = "CONFIGURATION_ERROR"
	Unknown          Kind = "UNKNOWN_ERROR"
)

type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func New(kind Kind, err error) error {
	return &Fault{Kind: kind, Err: err}
}

func Errorf(kind Kind, format string, args ...any) error {
	return &Fault{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf unwraps the error chain looking for a Fault. Context deadline
// failures count as Timeout even when no stage wrapped them.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage maps an error kind to the message shown on the interactive
// surface. Internals never leak to the user.
func UserMessage(err error) string {
	switch KindOf(err) {
	case Extraction:
		return "The uploaded file could not be read. Please upload a valid, unencrypted PDF."
	case Embedding:
		return "The document text could not be processed by the embedding provider."
	case RateLimit:
		return "The embedding provider is rate limiting requests. Please try again in a moment."
	case IndexUnavailable:
		return "The vector store is unreachable. Check the connection and retry."
	case Timeout:
		return "The request took too long and was cancelled. Please try again."
	case Configuration:
		return "The service is misconfigured. Contact the administrator."
	default:
		return "Something went wrong while handling your request."
	}
}
