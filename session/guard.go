package session

import (
	"context"
	"strings"

	"github.com/tbxark/tallyentry/types"
)

// Location is a route inside the host application, for example
// "/data-entry/42/voters_votes_counts".
type Location string

// Router maps locations onto sections of the data-entry flow.
type Router interface {
	// SectionOf reports whether loc lies inside the flow and, if it names
	// one, which section it shows.
	SectionOf(loc Location) (types.SectionID, bool)
	Location(id types.SectionID) Location
}

// PathRouter places the flow under Prefix with one path segment per section.
type PathRouter struct {
	Prefix string
}

func (r PathRouter) SectionOf(loc Location) (types.SectionID, bool) {
	prefix := strings.TrimSuffix(r.Prefix, "/")
	path := string(loc)
	if path == prefix {
		return "", true
	}
	if !strings.HasPrefix(path, prefix+"/") {
		return "", false
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix+"/"), "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return types.SectionID(rest), true
}

func (r PathRouter) Location(id types.SectionID) Location {
	return Location(strings.TrimSuffix(r.Prefix, "/") + "/" + string(id))
}

type DecisionKind int

const (
	// Allow lets the navigation through untouched.
	Allow DecisionKind = iota
	// CacheAndAllow stores the current draft in the temporary cache first.
	CacheAndAllow
	// BlockAbort leaves the flow: the user picks save and leave, discard and
	// leave, or cancel.
	BlockAbort
	// BlockUnsaved leaves an edited, already completed section: the user
	// picks save changes or discard changes.
	BlockUnsaved
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case CacheAndAllow:
		return "cache_and_allow"
	case BlockAbort:
		return "block_abort"
	case BlockUnsaved:
		return "block_unsaved"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind DecisionKind
	// Section is the section being left, if any.
	Section types.SectionID
}

func (d Decision) Blocked() bool {
	return d.Kind == BlockAbort || d.Kind == BlockUnsaved
}

// ShouldBlock decides what happens when the user tries to go from current to
// next. It does not change the session.
func (s *Session[R]) ShouldBlock(current, next Location) Decision {
	st := s.state
	if s.user == "" || st.Error.Fatal() || st.Status.IsOneShot() || next == current {
		return Decision{Kind: Allow}
	}
	if !st.Claimed() {
		return Decision{Kind: Allow}
	}
	if _, inFlow := s.router.SectionOf(current); !inFlow {
		return Decision{Kind: Allow}
	}
	leaving := st.FormState.Current()
	if _, inFlow := s.router.SectionOf(next); !inFlow {
		return Decision{Kind: BlockAbort, Section: leaving}
	}

	sec, ok := st.FormState.Section(leaving)
	if !ok || !sec.HasChanges {
		return Decision{Kind: Allow, Section: leaving}
	}
	if st.FormState.CurrentIndex() == st.FormState.FurthestIndex() {
		return Decision{Kind: CacheAndAllow, Section: leaving}
	}
	return Decision{Kind: BlockUnsaved, Section: leaving}
}

// Navigate evaluates ShouldBlock and, when the draft of the section being
// left may be cached, stores it. The caller proceeds unless the decision is
// blocked.
func (s *Session[R]) Navigate(current, next Location, draft types.Values) (Decision, error) {
	d := s.ShouldBlock(current, next)
	if d.Kind == CacheAndAllow {
		if err := s.Dispatch(SetCache{Cache: &TemporaryCache{Key: d.Section, Data: draft}}); err != nil {
			return d, err
		}
		s.logger.Debug("Cached draft", "section", d.Section, "fields", len(draft))
	}
	s.logger.Debug("Navigation", "from", current, "to", next, "decision", d.Kind.String())
	return d, nil
}

// SaveAndLeave is the save outcome of the abort dialog. It submits the
// section being left together with any cached draft and ends the session.
// The caller may navigate only when it returns true.
func (s *Session[R]) SaveAndLeave(ctx context.Context, id types.SectionID, values types.Values) (bool, error) {
	return s.Submit(ctx, id, values, SubmitOptions{Aborting: true})
}

// DiscardAndLeave is the discard outcome of the abort dialog: the whole
// in-progress record is deleted.
func (s *Session[R]) DiscardAndLeave(ctx context.Context) error {
	return s.Delete(ctx)
}

// SaveChanges is the save outcome of the unsaved changes dialog.
func (s *Session[R]) SaveChanges(ctx context.Context, id types.SectionID, values types.Values) (bool, error) {
	return s.Submit(ctx, id, values, SubmitOptions{})
}

// DiscardChanges is the discard outcome of the unsaved changes dialog. The
// edits are dropped and the section no longer counts as changed.
func (s *Session[R]) DiscardChanges(id types.SectionID) error {
	return s.SetHasChanges(id, false)
}
