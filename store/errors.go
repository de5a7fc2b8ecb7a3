package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrConflict     = errors.New("store: conflict")
	ErrInvalidState = errors.New("store: invalid state")
	ErrUnavailable  = errors.New("store: unavailable")
)

// APIError is a protocol-level failure reported by the store.
type APIError struct {
	Status    int
	Reference string
	Message   string
}

func (e *APIError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("store: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("store: %d %s: %s", e.Status, e.Reference, e.Message)
}

type Class int

const (
	ClassNone Class = iota
	// ClassClient failures are recoverable after correcting input.
	ClassClient
	// ClassServer failures are recoverable by retrying.
	ClassServer
	// ClassFatal failures end the session.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	default:
		return "fatal"
	}
}

// Classify maps an error returned by a Store to its handling class.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ClassFatal
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusNotFound:
			return ClassFatal
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return ClassClient
		case apiErr.Status >= 500:
			return ClassServer
		}
	}
	return ClassFatal
}
