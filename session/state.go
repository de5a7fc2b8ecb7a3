package session

import (
	"github.com/tbxark/tallyentry/formstate"
	"github.com/tbxark/tallyentry/section"
	"github.com/tbxark/tallyentry/store"
	"github.com/tbxark/tallyentry/types"
)

// RecordSpec binds a record type to its sections and cross-section rules.
type RecordSpec[R any] interface {
	Schema() *section.Schema
	// Normalize applies rules that span sections. It runs on every
	// submission, whichever section is submitted.
	Normalize(record R) R
}

// TemporaryCache holds the unsaved draft of one section.
type TemporaryCache struct {
	Key  types.SectionID
	Data types.Values
}

// Failure is the session-level error slot.
type Failure struct {
	Err   error
	Class store.Class
}

func (f *Failure) Fatal() bool {
	return f != nil && f.Class == store.ClassFatal
}

// State is replaced as a whole on every action; values reachable from it are
// never modified in place.
type State[R any] struct {
	Status    types.Status
	Error     *Failure
	Record    *R
	FormState formstate.FormState
	Cache     *TemporaryCache
	// TargetSection is where the user should go next; empty means stay.
	TargetSection types.SectionID
}

// Claimed reports whether a record is loaded.
func (s State[R]) Claimed() bool {
	return s.Record != nil && !s.FormState.IsZero()
}

// Progress is the share of sections reached, zero before a claim.
func (s State[R]) Progress() int {
	if s.FormState.IsZero() {
		return 0
	}
	return s.FormState.Progress()
}

type SubmitOptions struct {
	AcceptWarnings              bool
	Aborting                    bool
	ContinueToNextSection       bool
	ShowAcceptErrorsAndWarnings bool
}
