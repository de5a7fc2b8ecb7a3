package session

import (
	"errors"
	"fmt"

	"github.com/tbxark/tallyentry/formstate"
	"github.com/tbxark/tallyentry/store"
	"github.com/tbxark/tallyentry/types"
)

var (
	ErrUnknownAction     = errors.New("session: unknown action")
	ErrInvalidTransition = errors.New("session: invalid state transition")
	ErrNotClaimed        = errors.New("session: no record claimed")
)

var transitions = map[types.Status][]types.Status{
	types.StatusIdle:       {types.StatusSaving, types.StatusDeleting, types.StatusFinalising},
	types.StatusSaving:     {types.StatusIdle, types.StatusAborted},
	types.StatusDeleting:   {types.StatusIdle, types.StatusDeleted},
	types.StatusFinalising: {types.StatusIdle, types.StatusFinalised},
}

func canTransition(from, to types.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to types.Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Reduce applies action to state and returns the next state. It never
// modifies state; on error the returned state equals the input.
func Reduce[R any](state State[R], action Action) (State[R], error) {
	switch a := action.(type) {
	case ClaimSucceeded[R]:
		if state.Status != types.StatusIdle {
			return state, transitionError(state.Status, types.StatusIdle)
		}
		record := a.Record
		next := state
		next.Record = &record
		next.FormState = a.FormState
		next.Error = nil
		next.Cache = nil
		next.TargetSection = ""
		return next, nil

	case ClaimFailed:
		next := state
		next.Error = newFailure(a.Err)
		return next, nil

	case SaveSucceeded[R]:
		return reduceSaveSucceeded(state, a)

	case SaveFailed:
		if state.Status != types.StatusSaving {
			return state, transitionError(state.Status, types.StatusIdle)
		}
		next := state
		next.Status = types.StatusIdle
		next.Error = newFailure(a.Err)
		return next, nil

	case SetStatus:
		if !canTransition(state.Status, a.Status) {
			return state, transitionError(state.Status, a.Status)
		}
		next := state
		next.Status = a.Status
		if a.Status == types.StatusSaving && !state.FormState.IsZero() {
			next.FormState = state.FormState.ResetSubmitted()
		}
		return next, nil

	case SetError:
		next := state
		next.Error = newFailure(a.Err)
		return next, nil

	case SetCache:
		next := state
		if a.Cache == nil {
			next.Cache = nil
			return next, nil
		}
		next.Cache = &TemporaryCache{Key: a.Cache.Key, Data: a.Cache.Data.Clone()}
		return next, nil

	case UpdateSection:
		if !state.Claimed() {
			return state, ErrNotClaimed
		}
		fs, err := state.FormState.UpdateSection(a.Section, func(s *formstate.SectionStatus) {
			if a.HasChanges != nil {
				s.HasChanges = *a.HasChanges
			}
			if a.AcceptErrorsAndWarnings != nil {
				s.AcceptErrorsAndWarnings = *a.AcceptErrorsAndWarnings
				if *a.AcceptErrorsAndWarnings {
					s.AcceptErrorsAndWarningsError = false
				}
			}
			if a.AcceptErrorsAndWarningsError != nil {
				s.AcceptErrorsAndWarningsError = *a.AcceptErrorsAndWarningsError
			}
		})
		if err != nil {
			return state, err
		}
		next := state
		next.FormState = fs
		return next, nil

	case RegisterCurrentSection:
		if !state.Claimed() {
			return state, ErrNotClaimed
		}
		fs, err := state.FormState.MoveTo(a.Section)
		if err != nil {
			return state, err
		}
		next := state
		next.FormState = fs
		if state.Cache != nil && state.Cache.Key == a.Section {
			next.Cache = nil
		}
		return next, nil

	case ResetTargetSection:
		next := state
		next.TargetSection = ""
		return next, nil

	default:
		if action == nil {
			return state, fmt.Errorf("%w: <nil>", ErrUnknownAction)
		}
		return state, fmt.Errorf("%w: %s (%T)", ErrUnknownAction, action.Tag(), action)
	}
}

func reduceSaveSucceeded[R any](state State[R], a SaveSucceeded[R]) (State[R], error) {
	to := types.StatusIdle
	if a.Aborting {
		to = types.StatusAborted
	}
	if state.Status != types.StatusSaving {
		return state, transitionError(state.Status, to)
	}
	if !state.Claimed() {
		return state, ErrNotClaimed
	}

	before, ok := state.FormState.Section(a.Section)
	if !ok {
		return state, fmt.Errorf("save succeeded for unknown section %q", a.Section)
	}
	fs, err := state.FormState.MoveTo(a.Section)
	if err != nil {
		return state, err
	}
	wasFurthest := fs.Current() == fs.Furthest()

	fs, err = fs.ClearResults().UpdateSection(a.Section, func(s *formstate.SectionStatus) {
		s.IsSaved = true
		s.IsSubmitted = boolPtr(true)
		s.HasChanges = false
		s.AcceptErrorsAndWarnings = s.AcceptErrorsAndWarnings || a.AcceptWarnings
		s.AcceptErrorsAndWarningsError = false
	})
	if err != nil {
		return state, err
	}
	fs, err = fs.DistributeAll(a.Results)
	if err != nil {
		return state, err
	}

	after, _ := fs.Section(a.Section)
	if !after.HasResults() || !after.Errors.Equal(before.Errors) || !after.Warnings.Equal(before.Warnings) {
		fs, err = fs.UpdateSection(a.Section, func(s *formstate.SectionStatus) {
			s.AcceptErrorsAndWarnings = false
		})
		if err != nil {
			return state, err
		}
		after, _ = fs.Section(a.Section)
	}

	target := types.SectionID("")
	if a.ContinueToNext && !a.Aborting && !after.NeedsAcknowledgment() {
		if wasFurthest {
			fs = fs.AdvanceFurthest()
		}
		if id, ok := fs.NextSection(); ok {
			target = id
		}
	}

	record := a.Record
	next := state
	next.Status = to
	next.Record = &record
	next.FormState = fs
	next.Error = nil
	next.TargetSection = target
	return next, nil
}

func newFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Err: err, Class: store.Classify(err)}
}
