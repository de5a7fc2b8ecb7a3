package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tbxark/tallyentry/types"
)

const defaultNamespace = "tallyentry:entry"

// Validator computes the validation results of a record.
type Validator func(ctx context.Context, data json.RawMessage) (types.ValidationResults, error)

// Local implements Store on top of an entry cache. Entries are owned by the
// first owner that claims them.
type Local struct {
	mu          sync.Mutex
	entries     Namespace[Entry]
	owner       string
	validate    Validator
	initialData json.RawMessage
	now         func() time.Time
}

type LocalOption func(*Local)

func WithValidator(v Validator) LocalOption {
	return func(l *Local) {
		l.validate = v
	}
}

// WithInitialData sets the record stored on the first claim of an entry.
func WithInitialData(data json.RawMessage) LocalOption {
	return func(l *Local) {
		if len(data) > 0 {
			l.initialData = data
		}
	}
}

func WithNamespace(namespace string) LocalOption {
	return func(l *Local) {
		if strings.TrimSpace(namespace) != "" {
			l.entries.namespace = strings.TrimSpace(namespace)
		}
	}
}

func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLocal(cache Cache[Entry], owner string, opts ...LocalOption) (*Local, error) {
	if cache == nil {
		return nil, fmt.Errorf("entry cache is required")
	}
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("owner is required")
	}
	l := &Local{
		entries:     NewNamespace(cache, defaultNamespace),
		owner:       strings.TrimSpace(owner),
		initialData: json.RawMessage(`{}`),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Local) Owner() string {
	return l.owner
}

// Entry returns the stored entry without claiming it.
func (l *Local) Entry(ctx context.Context, recordID string) (Entry, error) {
	entry, ok, err := l.entries.Get(ctx, recordID)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: entry %q", ErrNotFound, recordID)
	}
	return entry, nil
}

func (l *Local) Claim(ctx context.Context, recordID string) (*ClaimResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok, err := l.entries.Get(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case !ok:
		now := l.now().UTC()
		entry = Entry{
			RecordID:  recordID,
			Owner:     l.owner,
			Status:    EntryInProgress,
			Data:      l.initialData,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := l.entries.Set(ctx, recordID, entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		slog.Info("Data entry created", "record", recordID, "owner", l.owner)
	case entry.Status == EntryFinalised:
		return nil, fmt.Errorf("%w: entry %q is already finalised", ErrInvalidState, recordID)
	case entry.Owner != l.owner:
		return nil, fmt.Errorf("%w: entry %q is claimed by %q", ErrConflict, recordID, entry.Owner)
	}

	results, err := l.validateData(ctx, entry.Data)
	if err != nil {
		return nil, err
	}
	return &ClaimResponse{
		Data:              entry.Data,
		ClientState:       entry.ClientState,
		ValidationResults: results,
	}, nil
}

func (l *Local) Save(ctx context.Context, recordID string, req SaveRequest) (*SaveResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.owned(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if req.Progress < 0 || req.Progress > 100 {
		return nil, &APIError{Status: http.StatusUnprocessableEntity, Reference: "InvalidData", Message: fmt.Sprintf("progress %d out of range", req.Progress)}
	}
	if !json.Valid(req.Data) {
		return nil, &APIError{Status: http.StatusUnprocessableEntity, Reference: "InvalidJson", Message: "data is not valid JSON"}
	}

	results, err := l.validateData(ctx, req.Data)
	if err != nil {
		return nil, err
	}
	entry.Data = req.Data
	entry.ClientState = req.ClientState
	entry.Progress = req.Progress
	entry.UpdatedAt = l.now().UTC()
	if err := l.entries.Set(ctx, recordID, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	slog.Debug("Data entry saved", "record", recordID, "progress", req.Progress,
		"errors", len(results.Errors), "warnings", len(results.Warnings))
	return &SaveResponse{ValidationResults: results}, nil
}

func (l *Local) Delete(ctx context.Context, recordID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.owned(ctx, recordID); err != nil {
		return err
	}
	if err := l.entries.Del(ctx, recordID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	slog.Info("Data entry deleted", "record", recordID)
	return nil
}

func (l *Local) Finalize(ctx context.Context, recordID string) (*FinalizeResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.owned(ctx, recordID)
	if err != nil {
		return nil, err
	}
	results, err := l.validateData(ctx, entry.Data)
	if err != nil {
		return nil, err
	}
	if len(results.Errors) > 0 {
		return nil, &APIError{Status: http.StatusConflict, Reference: "DataEntryHasErrors", Message: "resolve all errors before finalising"}
	}
	entry.Status = EntryFinalised
	entry.Progress = 100
	entry.UpdatedAt = l.now().UTC()
	if err := l.entries.Set(ctx, recordID, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	slog.Info("Data entry finalised", "record", recordID)
	return &FinalizeResponse{Status: entry.Status}, nil
}

func (l *Local) owned(ctx context.Context, recordID string) (Entry, error) {
	entry, ok, err := l.entries.Get(ctx, recordID)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: entry %q", ErrNotFound, recordID)
	}
	if entry.Owner != l.owner {
		return Entry{}, fmt.Errorf("%w: entry %q is claimed by %q", ErrConflict, recordID, entry.Owner)
	}
	if entry.Status != EntryInProgress {
		return Entry{}, fmt.Errorf("%w: entry %q is %s", ErrInvalidState, recordID, entry.Status)
	}
	return entry, nil
}

func (l *Local) validateData(ctx context.Context, data json.RawMessage) (types.ValidationResults, error) {
	if l.validate == nil {
		return types.ValidationResults{}, nil
	}
	results, err := l.validate(ctx, data)
	if err != nil {
		return types.ValidationResults{}, &APIError{Status: http.StatusUnprocessableEntity, Reference: "InvalidData", Message: err.Error()}
	}
	return results, nil
}

var _ Store = (*Local)(nil)
