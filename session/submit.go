package session

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/callbacks"

	"github.com/tbxark/tallyentry/patch"
	"github.com/tbxark/tallyentry/store"
	"github.com/tbxark/tallyentry/types"
)

// Submit saves the edited values of one section.
//
// It returns false without contacting the store when nothing is claimed, the
// section is unknown or lies beyond the furthest section, or the section still
// carries errors or warnings the user must acknowledge first. A store failure returns false and the error;
// the form state then keeps its previous saved and result state.
func (s *Session[R]) Submit(ctx context.Context, id types.SectionID, values types.Values, opts SubmitOptions) (ok bool, err error) {
	if !s.state.Claimed() {
		return false, nil
	}
	schema := s.spec.Schema()
	index, known := schema.Index(id)
	if !known || !s.state.FormState.CanMoveTo(index) {
		return false, nil
	}
	if s.state.Status == types.StatusSaving {
		return false, ErrBusy
	}
	if s.state.Status.IsTerminal() {
		return false, ErrClosed
	}
	if s.state.Status != types.StatusIdle {
		return false, ErrBusy
	}

	sec, _ := s.state.FormState.Section(id)
	if !opts.Aborting && opts.ShowAcceptErrorsAndWarnings && sec.HasResults() &&
		!sec.AcceptErrorsAndWarnings && !opts.AcceptWarnings {
		s.logger.Debug("Submission held for acknowledgment", "section", id,
			"errors", sec.Errors.Codes(), "warnings", sec.Warnings.Codes())
		if err := s.Dispatch(UpdateSection{Section: id, AcceptErrorsAndWarningsError: boolPtr(true)}); err != nil {
			return false, err
		}
		return false, nil
	}

	ctx = callbacks.EnsureRunInfo(ctx, "DataEntrySession", "Session")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"operation": "save",
		"record":    s.recordID,
		"section":   string(id),
		"aborting":  opts.Aborting,
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
			return
		}
		callbacks.OnEnd(ctx, map[string]any{
			"operation": "save",
			"saved":     ok,
			"status":    string(s.state.Status),
			"target":    string(s.state.TargetSection),
		})
	}()

	record, err := patch.MergeSection(*s.state.Record, values, schema.Fields(id))
	if err != nil {
		return false, fmt.Errorf("section %s: %w", id, err)
	}
	cache := s.state.Cache
	if opts.Aborting && cache != nil && cache.Key != id {
		record, err = patch.MergeSection(record, cache.Data, schema.Fields(cache.Key))
		if err != nil {
			return false, fmt.Errorf("cached section %s: %w", cache.Key, err)
		}
		s.logger.Debug("Merged cached draft", "section", cache.Key)
	}
	record = s.spec.Normalize(record)

	fs := s.state.FormState
	progress := fs.Progress()
	clientState, err := fs.SaveClientState(id, opts.AcceptWarnings, opts.ContinueToNextSection && !opts.Aborting)
	if err != nil {
		return false, err
	}

	data, err := sonic.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	rawClientState, err := sonic.Marshal(clientState)
	if err != nil {
		return false, fmt.Errorf("encode client state: %w", err)
	}

	if cache != nil && cache.Key == id {
		if err := s.Dispatch(SetCache{}); err != nil {
			return false, err
		}
	}
	if err := s.Dispatch(SetStatus{Status: types.StatusSaving}); err != nil {
		return false, err
	}
	s.logger.Debug("Saving section", "record", s.recordID, "section", id, "progress", progress)

	resp, err := s.store.Save(ctx, s.recordID, store.SaveRequest{
		Progress:    progress,
		Data:        data,
		ClientState: rawClientState,
	})
	if err != nil {
		_ = s.Dispatch(SaveFailed{Err: err})
		s.logger.Debug("Save failed", "section", id, "class", store.Classify(err).String(), "error", err)
		return false, fmt.Errorf("save section %s: %w", id, err)
	}

	if err := s.Dispatch(SaveSucceeded[R]{
		Record:         record,
		Section:        id,
		Results:        resp.ValidationResults,
		AcceptWarnings: opts.AcceptWarnings,
		ContinueToNext: opts.ContinueToNextSection,
		Aborting:       opts.Aborting,
	}); err != nil {
		return false, err
	}
	s.logger.Debug("Saved section", "section", id,
		"furthest", s.state.FormState.Furthest(), "target", s.state.TargetSection)
	return true, nil
}
