// Package session runs one data-entry session over a claimed record: it owns
// the form state, routes every change through Reduce, and talks to the
// remote store.
//
// A Session is driven from a single goroutine, the way a UI event loop drives
// it. It is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/callbacks"

	"github.com/tbxark/tallyentry/formstate"
	"github.com/tbxark/tallyentry/patch"
	"github.com/tbxark/tallyentry/section"
	"github.com/tbxark/tallyentry/store"
	"github.com/tbxark/tallyentry/types"
)

var (
	ErrBusy   = errors.New("session: an operation is in flight")
	ErrClosed = errors.New("session: session has ended")
)

type Session[R any] struct {
	recordID  string
	user      string
	spec      RecordSpec[R]
	store     store.Store
	router    Router
	logger    *slog.Logger
	state     State[R]
	listeners []func(State[R])
}

type Option[R any] func(*Session[R])

func WithLogger[R any](logger *slog.Logger) Option[R] {
	return func(s *Session[R]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRouter[R any](router Router) Option[R] {
	return func(s *Session[R]) {
		if router != nil {
			s.router = router
		}
	}
}

// New creates an idle session for recordID on behalf of user. Nothing is
// loaded until Claim succeeds.
func New[R any](recordID, user string, spec RecordSpec[R], st store.Store, opts ...Option[R]) (*Session[R], error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, fmt.Errorf("record id is required")
	}
	if spec == nil || spec.Schema() == nil {
		return nil, fmt.Errorf("record spec is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	s := &Session[R]{
		recordID: recordID,
		user:     strings.TrimSpace(user),
		spec:     spec,
		store:    st,
		router:   PathRouter{Prefix: "/data-entry/" + recordID},
		logger:   slog.Default(),
		state:    State[R]{Status: types.StatusIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session[R]) RecordID() string { return s.recordID }
func (s *Session[R]) User() string     { return s.user }
func (s *Session[R]) Router() Router   { return s.router }
func (s *Session[R]) Schema() *section.Schema {
	return s.spec.Schema()
}

// State returns the current state. Callers must treat it as read-only.
func (s *Session[R]) State() State[R] {
	return s.state
}

// Subscribe registers fn to be called with every new state.
func (s *Session[R]) Subscribe(fn func(State[R])) {
	s.listeners = append(s.listeners, fn)
}

// Dispatch reduces action into the session state. A rejected action leaves
// the state unchanged, except that an invalid transition is recorded as a
// fatal error.
func (s *Session[R]) Dispatch(action Action) error {
	if action == nil {
		return fmt.Errorf("%w: <nil>", ErrUnknownAction)
	}
	next, err := Reduce(s.state, action)
	if err != nil {
		s.logger.Debug("Action rejected", "action", action.Tag(), "error", err)
		if errors.Is(err, ErrInvalidTransition) {
			s.state.Error = &Failure{Err: err, Class: store.ClassFatal}
			s.notify()
		}
		return err
	}
	s.state = next
	s.notify()
	return nil
}

func (s *Session[R]) notify() {
	for _, fn := range s.listeners {
		fn(s.state)
	}
}

// Claim takes ownership of the record and rebuilds the form state from the
// stored client state. Cancelling ctx abandons the claim without touching
// the session state.
func (s *Session[R]) Claim(ctx context.Context) (err error) {
	ctx = callbacks.EnsureRunInfo(ctx, "DataEntrySession", "Session")
	ctx = callbacks.OnStart(ctx, map[string]any{"operation": "claim", "record": s.recordID})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
			return
		}
		callbacks.OnEnd(ctx, map[string]any{"operation": "claim", "progress": s.state.Progress()})
	}()

	resp, err := s.store.Claim(ctx, s.recordID)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		_ = s.Dispatch(ClaimFailed{Err: err})
		return fmt.Errorf("claim %s: %w", s.recordID, err)
	}

	var record R
	if err := sonic.Unmarshal(resp.Data, &record); err != nil {
		err = fmt.Errorf("%w: decode record: %v", store.ErrInvalidState, err)
		_ = s.Dispatch(ClaimFailed{Err: err})
		return err
	}
	var cs *types.ClientState
	if raw := strings.TrimSpace(string(resp.ClientState)); raw != "" && raw != "null" {
		cs = &types.ClientState{}
		if err := sonic.Unmarshal(resp.ClientState, cs); err != nil {
			err = fmt.Errorf("%w: decode client state: %v", store.ErrInvalidState, err)
			_ = s.Dispatch(ClaimFailed{Err: err})
			return err
		}
	}
	fs, err := formstate.Build(s.spec.Schema(), cs, resp.ValidationResults)
	if err != nil {
		err = fmt.Errorf("%w: %v", store.ErrInvalidState, err)
		_ = s.Dispatch(ClaimFailed{Err: err})
		return err
	}
	if err := s.Dispatch(ClaimSucceeded[R]{Record: record, FormState: fs}); err != nil {
		return err
	}
	s.logger.Info("Data entry claimed", "record", s.recordID, "user", s.user,
		"current", fs.Current(), "furthest", fs.Furthest(), "resumed", cs != nil)
	return nil
}

// Delete discards the whole in-progress record.
func (s *Session[R]) Delete(ctx context.Context) error {
	return s.finish(ctx, "delete", types.StatusDeleting, types.StatusDeleted, func(ctx context.Context) error {
		return s.store.Delete(ctx, s.recordID)
	})
}

// Finalize completes the data entry.
func (s *Session[R]) Finalize(ctx context.Context) error {
	return s.finish(ctx, "finalize", types.StatusFinalising, types.StatusFinalised, func(ctx context.Context) error {
		resp, err := s.store.Finalize(ctx, s.recordID)
		if err != nil {
			return err
		}
		s.logger.Debug("Finalize response", "record", s.recordID, "status", resp.Status)
		return nil
	})
}

func (s *Session[R]) finish(ctx context.Context, op string, during, done types.Status, call func(context.Context) error) (err error) {
	if !s.state.Claimed() {
		return ErrNotClaimed
	}
	if s.state.Status.IsTerminal() {
		return ErrClosed
	}
	if s.state.Status != types.StatusIdle {
		return ErrBusy
	}

	ctx = callbacks.EnsureRunInfo(ctx, "DataEntrySession", "Session")
	ctx = callbacks.OnStart(ctx, map[string]any{"operation": op, "record": s.recordID})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
			return
		}
		callbacks.OnEnd(ctx, map[string]any{"operation": op, "status": string(s.state.Status)})
	}()

	if err := s.Dispatch(SetStatus{Status: during}); err != nil {
		return err
	}
	if err := call(ctx); err != nil {
		_ = s.Dispatch(SetStatus{Status: types.StatusIdle})
		_ = s.Dispatch(SetError{Err: err})
		return fmt.Errorf("%s %s: %w", op, s.recordID, err)
	}
	if err := s.Dispatch(SetStatus{Status: done}); err != nil {
		return err
	}
	s.logger.Info("Data entry "+string(done), "record", s.recordID)
	return nil
}

// UpdateSection sets section flags, typically from user interaction.
func (s *Session[R]) UpdateSection(update UpdateSection) error {
	return s.Dispatch(update)
}

// SetHasChanges marks whether the section holds unsaved edits.
func (s *Session[R]) SetHasChanges(id types.SectionID, changed bool) error {
	return s.Dispatch(UpdateSection{Section: id, HasChanges: boolPtr(changed)})
}

// AcceptErrorsAndWarnings records the user's acknowledgment for a section.
func (s *Session[R]) AcceptErrorsAndWarnings(id types.SectionID, accept bool) error {
	return s.Dispatch(UpdateSection{Section: id, AcceptErrorsAndWarnings: boolPtr(accept)})
}

// RegisterCurrentSection makes id the displayed section. If a draft of id was
// cached it is returned and the cache is cleared.
func (s *Session[R]) RegisterCurrentSection(id types.SectionID) (types.Values, error) {
	var draft types.Values
	if c := s.state.Cache; c != nil && c.Key == id {
		draft = c.Data.Clone()
	}
	if err := s.Dispatch(RegisterCurrentSection{Section: id}); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *Session[R]) ResetTargetSection() {
	_ = s.Dispatch(ResetTargetSection{})
}

// DismissError clears a recoverable error from the error slot.
func (s *Session[R]) DismissError() {
	if s.state.Error.Fatal() {
		return
	}
	_ = s.Dispatch(SetError{})
}

// Values returns the saved values of the fields owned by id.
func (s *Session[R]) Values(id types.SectionID) (types.Values, error) {
	if !s.state.Claimed() {
		return nil, ErrNotClaimed
	}
	fields := s.spec.Schema().Fields(id)
	if fields == nil {
		return nil, fmt.Errorf("%w: %q", section.ErrUnknownSection, id)
	}
	return patch.Extract(*s.state.Record, fields)
}
