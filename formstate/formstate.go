// Package formstate tracks per-section completion of a data-entry form and
// the two navigation cursors, current and furthest.
//
// A FormState is a value. Every transition returns a new FormState and leaves
// the receiver untouched; Revision changes on each transition so observers
// can detect updates without deep comparison.
package formstate

import (
	"fmt"
	"math"

	"github.com/tbxark/tallyentry/section"
	"github.com/tbxark/tallyentry/types"
	"github.com/tbxark/tallyentry/validation"
)

type SectionStatus struct {
	ID         types.SectionID
	HasChanges bool
	IsSaved    bool
	// IsSubmitted is nil until the section takes part in a processed save
	// response, and reset to nil when the next save cycle starts.
	IsSubmitted                  *bool
	AcceptErrorsAndWarnings      bool
	AcceptErrorsAndWarningsError bool
	Errors                       *validation.ResultSet
	Warnings                     *validation.ResultSet
}

func newSectionStatus(id types.SectionID) SectionStatus {
	return SectionStatus{
		ID:       id,
		Errors:   validation.NewResultSet(),
		Warnings: validation.NewResultSet(),
	}
}

func (s SectionStatus) clone() SectionStatus {
	out := s
	out.Errors = s.Errors.Clone()
	out.Warnings = s.Warnings.Clone()
	if s.IsSubmitted != nil {
		v := *s.IsSubmitted
		out.IsSubmitted = &v
	}
	return out
}

// HasResults reports whether the section carries errors or warnings.
func (s SectionStatus) HasResults() bool {
	return !s.Errors.IsEmpty() || !s.Warnings.IsEmpty()
}

// NeedsAcknowledgment reports whether the section carries results the user
// has not accepted yet.
func (s SectionStatus) NeedsAcknowledgment() bool {
	return s.HasResults() && !s.AcceptErrorsAndWarnings
}

func (s SectionStatus) Submitted() bool {
	return s.IsSubmitted != nil && *s.IsSubmitted
}

type FormState struct {
	schema   *section.Schema
	current  int
	furthest int
	sections map[types.SectionID]SectionStatus
	revision uint64
}

// New returns an empty form state positioned on the first section.
func New(schema *section.Schema) FormState {
	f := FormState{
		schema:   schema,
		sections: make(map[types.SectionID]SectionStatus, schema.Len()),
	}
	for _, sec := range schema.Sections() {
		f.sections[sec.ID] = newSectionStatus(sec.ID)
	}
	return f
}

func (f FormState) next() FormState {
	out := f
	out.sections = make(map[types.SectionID]SectionStatus, len(f.sections))
	for id, s := range f.sections {
		out.sections[id] = s.clone()
	}
	out.revision = f.revision + 1
	return out
}

func (f FormState) Schema() *section.Schema { return f.schema }
func (f FormState) Revision() uint64        { return f.revision }
func (f FormState) CurrentIndex() int       { return f.current }
func (f FormState) FurthestIndex() int      { return f.furthest }

// IsZero reports whether the form state was never initialised.
func (f FormState) IsZero() bool { return f.schema == nil }

func (f FormState) Current() types.SectionID {
	sec, _ := f.schema.At(f.current)
	return sec.ID
}

func (f FormState) Furthest() types.SectionID {
	sec, _ := f.schema.At(f.furthest)
	return sec.ID
}

// ReachedTerminal reports whether the furthest cursor is on the final
// review-and-save section.
func (f FormState) ReachedTerminal() bool {
	return f.furthest == f.schema.Len()-1
}

// Section returns a copy of the status of id.
func (f FormState) Section(id types.SectionID) (SectionStatus, bool) {
	s, ok := f.sections[id]
	if !ok {
		return SectionStatus{}, false
	}
	return s.clone(), true
}

// Sections returns copies of all statuses in index order.
func (f FormState) Sections() []SectionStatus {
	out := make([]SectionStatus, 0, len(f.sections))
	for _, sec := range f.schema.Sections() {
		out = append(out, f.sections[sec.ID].clone())
	}
	return out
}

// CanMoveTo reports whether the current cursor may be placed on index i.
func (f FormState) CanMoveTo(i int) bool {
	return i >= 0 && i <= f.furthest
}

// MoveTo places the current cursor on id.
func (f FormState) MoveTo(id types.SectionID) (FormState, error) {
	i, ok := f.schema.Index(id)
	if !ok {
		return f, fmt.Errorf("%w: %q", section.ErrUnknownSection, id)
	}
	if !f.CanMoveTo(i) {
		return f, fmt.Errorf("section %q is beyond the furthest section %q", id, f.Furthest())
	}
	if i == f.current {
		return f, nil
	}
	out := f.next()
	out.current = i
	return out, nil
}

// AdvanceFurthest moves the furthest cursor one section forward. It never
// moves past the terminal section.
func (f FormState) AdvanceFurthest() FormState {
	if f.ReachedTerminal() {
		return f
	}
	out := f.next()
	out.furthest++
	return out
}

// UpdateSection applies fn to a copy of the status of id.
func (f FormState) UpdateSection(id types.SectionID, fn func(s *SectionStatus)) (FormState, error) {
	if _, ok := f.sections[id]; !ok {
		return f, fmt.Errorf("%w: %q", section.ErrUnknownSection, id)
	}
	out := f.next()
	s := out.sections[id]
	fn(&s)
	s.ID = id
	if s.Errors == nil {
		s.Errors = validation.NewResultSet()
	}
	if s.Warnings == nil {
		s.Warnings = validation.NewResultSet()
	}
	out.sections[id] = s
	return out, nil
}

// ResetSubmitted starts a new submission cycle.
func (f FormState) ResetSubmitted() FormState {
	out := f.next()
	for id, s := range out.sections {
		s.IsSubmitted = nil
		out.sections[id] = s
	}
	return out
}

// ClearResults empties every section's errors and warnings.
func (f FormState) ClearResults() FormState {
	out := f.next()
	for id, s := range out.sections {
		s.Errors = validation.NewResultSet()
		s.Warnings = validation.NewResultSet()
		out.sections[id] = s
	}
	return out
}

// Progress is the share of sections reached, as a rounded percentage.
func (f FormState) Progress() int {
	return int(math.Round(float64(f.furthest+1) / float64(f.schema.Len()) * 100))
}

// NextSection picks where the user goes after a successful save. Once the
// terminal section is reached, the first section with unacknowledged errors
// wins; otherwise it is the section after current.
func (f FormState) NextSection() (types.SectionID, bool) {
	if f.ReachedTerminal() {
		for _, sec := range f.schema.Sections() {
			s := f.sections[sec.ID]
			if !s.Errors.IsEmpty() && !s.AcceptErrorsAndWarnings {
				return sec.ID, true
			}
		}
	}
	sec, ok := f.schema.At(f.current + 1)
	if !ok {
		return "", false
	}
	return sec.ID, true
}
