package session

import (
	"github.com/tbxark/tallyentry/formstate"
	"github.com/tbxark/tallyentry/types"
)

// Action is a tagged state transition. Only Reduce interprets actions.
type Action interface {
	Tag() string
}

type ClaimSucceeded[R any] struct {
	Record    R
	FormState formstate.FormState
}

type ClaimFailed struct {
	Err error
}

type SaveSucceeded[R any] struct {
	Record         R
	Section        types.SectionID
	Results        types.ValidationResults
	AcceptWarnings bool
	ContinueToNext bool
	Aborting       bool
}

type SaveFailed struct {
	Err error
}

type SetStatus struct {
	Status types.Status
}

// SetError fills the error slot; a nil Err dismisses it.
type SetError struct {
	Err error
}

// SetCache replaces the temporary cache; nil clears it.
type SetCache struct {
	Cache *TemporaryCache
}

// UpdateSection changes the flags that are set; nil fields are left alone.
type UpdateSection struct {
	Section                      types.SectionID
	HasChanges                   *bool
	AcceptErrorsAndWarnings      *bool
	AcceptErrorsAndWarningsError *bool
}

// RegisterCurrentSection moves the current cursor and consumes the cached
// draft of that section.
type RegisterCurrentSection struct {
	Section types.SectionID
}

type ResetTargetSection struct{}

func (ClaimSucceeded[R]) Tag() string      { return "claim_succeeded" }
func (ClaimFailed) Tag() string            { return "claim_failed" }
func (SaveSucceeded[R]) Tag() string       { return "save_succeeded" }
func (SaveFailed) Tag() string             { return "save_failed" }
func (SetStatus) Tag() string              { return "set_status" }
func (SetError) Tag() string               { return "set_error" }
func (SetCache) Tag() string               { return "set_cache" }
func (UpdateSection) Tag() string          { return "update_section" }
func (RegisterCurrentSection) Tag() string { return "register_current_section" }
func (ResetTargetSection) Tag() string     { return "reset_target_section" }

func boolPtr(v bool) *bool { return &v }
