// Package store defines the remote store a data-entry session talks to, and
// a local implementation backed by a key/value entry cache.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbxark/tallyentry/types"
)

type ClaimResponse struct {
	Data json.RawMessage `json:"data"`
	// ClientState is echoed verbatim from the last save; nil on a fresh entry.
	ClientState       json.RawMessage         `json:"client_state,omitempty"`
	ValidationResults types.ValidationResults `json:"validation_results"`
}

type SaveRequest struct {
	Progress    int             `json:"progress"`
	Data        json.RawMessage `json:"data"`
	ClientState json.RawMessage `json:"client_state"`
}

type SaveResponse struct {
	ValidationResults types.ValidationResults `json:"validation_results"`
}

type FinalizeResponse struct {
	Status EntryStatus `json:"status"`
}

// Store is the single source of truth for data entries.
type Store interface {
	// Claim takes ownership of recordID and returns its current state.
	Claim(ctx context.Context, recordID string) (*ClaimResponse, error)
	Save(ctx context.Context, recordID string, req SaveRequest) (*SaveResponse, error)
	Delete(ctx context.Context, recordID string) error
	Finalize(ctx context.Context, recordID string) (*FinalizeResponse, error)
}

type EntryStatus string

const (
	EntryInProgress EntryStatus = "in_progress"
	EntryFinalised  EntryStatus = "finalised"
)

// Entry is the persisted form of one data entry.
type Entry struct {
	RecordID    string          `json:"record_id"`
	Owner       string          `json:"owner"`
	Status      EntryStatus     `json:"status"`
	Progress    int             `json:"progress"`
	Data        json.RawMessage `json:"data"`
	ClientState json.RawMessage `json:"client_state,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a copy of e that shares no buffers with it.
func (e Entry) Clone() Entry {
	e.Data = cloneRaw(e.Data)
	e.ClientState = cloneRaw(e.ClientState)
	return e
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
