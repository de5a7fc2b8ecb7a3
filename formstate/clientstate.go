package formstate

import (
	"fmt"

	"github.com/tbxark/tallyentry/section"
	"github.com/tbxark/tallyentry/types"
)

// ClientState serialises the cursors and acknowledgment flags. The current
// section is listed as accepted only when acceptWarnings is set, because the
// caller's acknowledgment for it may not be reflected in f yet.
//
// A furthest section that was never saved is written as a continue from the
// section before it, so Build can tell it apart from a saved one.
func (f FormState) ClientState(acceptWarnings, continueToNext bool) types.ClientState {
	cs := types.ClientState{
		Furthest:                  f.Furthest(),
		Current:                   f.Current(),
		AcceptedErrorsAndWarnings: []types.SectionID{},
		Continue:                  continueToNext,
	}
	if f.furthest > 0 && !f.sections[cs.Furthest].IsSaved {
		prev, _ := f.schema.At(f.furthest - 1)
		cs.Furthest = prev.ID
		cs.Continue = true
	}
	for _, sec := range f.schema.Sections() {
		if sec.Index == f.current {
			if acceptWarnings {
				cs.AcceptedErrorsAndWarnings = append(cs.AcceptedErrorsAndWarnings, sec.ID)
			}
			continue
		}
		if f.sections[sec.ID].AcceptErrorsAndWarnings {
			cs.AcceptedErrorsAndWarnings = append(cs.AcceptedErrorsAndWarnings, sec.ID)
		}
	}
	return cs
}

// SaveClientState is the client state stored with a save of id. The section
// becomes current and counts as saved; continueToNext only holds when id is
// the furthest section.
func (f FormState) SaveClientState(id types.SectionID, acceptWarnings, continueToNext bool) (types.ClientState, error) {
	moved, err := f.MoveTo(id)
	if err != nil {
		return types.ClientState{}, err
	}
	saved, err := moved.UpdateSection(id, func(s *SectionStatus) { s.IsSaved = true })
	if err != nil {
		return types.ClientState{}, err
	}
	return saved.ClientState(acceptWarnings, continueToNext && saved.current == saved.furthest), nil
}

// Build rebuilds a form state when a session resumes existing work. A nil
// client state yields a fresh form state. Every section up to furthest is
// saved. With Continue set, furthest moves on to the next section unless the
// saved one still needs acknowledgment.
func Build(schema *section.Schema, cs *types.ClientState, results types.ValidationResults) (FormState, error) {
	f := New(schema)
	if cs == nil {
		return f, nil
	}
	furthest, ok := schema.Index(cs.Furthest)
	if !ok {
		return f, fmt.Errorf("client state: %w: furthest %q", section.ErrUnknownSection, cs.Furthest)
	}
	current, ok := schema.Index(cs.Current)
	if !ok {
		return f, fmt.Errorf("client state: %w: current %q", section.ErrUnknownSection, cs.Current)
	}

	out := f.next()
	out.furthest = furthest
	out.current = min(current, furthest)
	for _, sec := range schema.Sections() {
		if sec.Index <= furthest {
			s := out.sections[sec.ID]
			s.IsSaved = true
			out.sections[sec.ID] = s
		}
	}
	for _, id := range cs.AcceptedErrorsAndWarnings {
		s, ok := out.sections[id]
		if !ok {
			return f, fmt.Errorf("client state: %w: accepted %q", section.ErrUnknownSection, id)
		}
		s.AcceptErrorsAndWarnings = true
		out.sections[id] = s
	}
	out, err := out.DistributeAll(results)
	if err != nil {
		return f, err
	}
	if cs.Continue && !out.sections[cs.Furthest].NeedsAcknowledgment() {
		out = out.AdvanceFurthest()
	}
	out.current = min(current, out.furthest)
	return out, nil
}
