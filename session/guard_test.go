package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/tallyentry/store"
	"github.com/tbxark/tallyentry/tally"
	"github.com/tbxark/tallyentry/types"
)

const outside Location = "/elections/1/status"

// onVotersVotesCounts returns a session whose furthest and current section is
// voters_votes_counts, with recounted saved.
func onVotersVotesCounts(t *testing.T, st *fakeStore) *Session[tally.PollingStationResults] {
	t.Helper()
	s := claimed(t, st)
	if ok, err := s.Submit(context.Background(), tally.SectionRecounted, types.Values{"/recounted": false}, forward()); !ok || err != nil {
		t.Fatalf("submit recounted = %v, %v", ok, err)
	}
	s.ResetTargetSection()
	if _, err := s.RegisterCurrentSection(tally.SectionVotersVotesCounts); err != nil {
		t.Fatalf("RegisterCurrentSection: %v", err)
	}
	return s
}

func TestPathRouter(t *testing.T) {
	t.Parallel()
	r := PathRouter{Prefix: "/data-entry/42/"}
	tests := []struct {
		loc     Location
		section types.SectionID
		inFlow  bool
	}{
		{"/data-entry/42", "", true},
		{"/data-entry/42/recounted", "recounted", true},
		{"/data-entry/42/recounted/", "recounted", true},
		{"/data-entry/42/save/details", "save", true},
		{"/data-entry/421/recounted", "", false},
		{"/elections/1", "", false},
	}
	for _, tt := range tests {
		section, inFlow := r.SectionOf(tt.loc)
		if section != tt.section || inFlow != tt.inFlow {
			t.Errorf("SectionOf(%q) = %q, %v; want %q, %v", tt.loc, section, inFlow, tt.section, tt.inFlow)
		}
	}
	if got := r.Location("save"); got != "/data-entry/42/save" {
		t.Errorf("Location = %q", got)
	}
}

func TestShouldBlockAllowsWithoutContext(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	s := newTestSession(t, st)
	here := loc(s, tally.SectionRecounted)
	if d := s.ShouldBlock(here, outside); d.Kind != Allow {
		t.Errorf("unclaimed: %v", d.Kind)
	}

	s = claimed(t, st)
	if d := s.ShouldBlock(here, here); d.Kind != Allow {
		t.Errorf("same location: %v", d.Kind)
	}
	if d := s.ShouldBlock(outside, "/elsewhere"); d.Kind != Allow {
		t.Errorf("outside the flow: %v", d.Kind)
	}
	if d := s.ShouldBlock(here, loc(s, tally.SectionRecounted)+"/"); d.Kind != Allow {
		t.Errorf("unchanged section: %v", d.Kind)
	}

	anon, err := New[tally.PollingStationResults]("42", "", s.spec, st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = anon.Claim(context.Background())
	if d := anon.ShouldBlock(here, outside); d.Kind != Allow {
		t.Errorf("no user: %v", d.Kind)
	}
}

func TestLeavingFurthestSectionCachesDraft(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	s := onVotersVotesCounts(t, st)
	draft := types.Values{"/votes_counts/blank_votes_count": 3, "/voters_counts/poll_card_count": 120}

	if err := s.SetHasChanges(tally.SectionVotersVotesCounts, true); err != nil {
		t.Fatalf("SetHasChanges: %v", err)
	}
	d, err := s.Navigate(loc(s, tally.SectionVotersVotesCounts), loc(s, tally.SectionRecounted), draft)
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if d.Kind != CacheAndAllow || d.Blocked() {
		t.Fatalf("decision = %v", d.Kind)
	}
	cache := s.State().Cache
	if cache == nil || cache.Key != tally.SectionVotersVotesCounts {
		t.Fatalf("cache = %+v", cache)
	}
	if restored, _ := s.RegisterCurrentSection(tally.SectionRecounted); restored != nil {
		t.Errorf("draft restored into the wrong section: %v", restored)
	}

	if d := s.ShouldBlock(loc(s, tally.SectionRecounted), loc(s, tally.SectionVotersVotesCounts)); d.Kind != Allow {
		t.Errorf("returning: %v", d.Kind)
	}
	restored, err := s.RegisterCurrentSection(tally.SectionVotersVotesCounts)
	if err != nil {
		t.Fatalf("RegisterCurrentSection: %v", err)
	}
	if diff := cmp.Diff(draft, restored); diff != "" {
		t.Errorf("restored draft mismatch (-want +got):\n%s", diff)
	}
	if s.State().Cache != nil {
		t.Errorf("cache not consumed")
	}
	if len(st.saves) != 1 {
		t.Errorf("navigation issued saves: %d", len(st.saves))
	}
}

func TestEditedEarlierSectionBlocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := &fakeStore{}
	s := onVotersVotesCounts(t, st)
	_, _ = s.RegisterCurrentSection(tally.SectionRecounted)
	_ = s.SetHasChanges(tally.SectionRecounted, true)

	d := s.ShouldBlock(loc(s, tally.SectionRecounted), loc(s, tally.SectionVotersVotesCounts))
	if d.Kind != BlockUnsaved || d.Section != tally.SectionRecounted {
		t.Fatalf("decision = %+v", d)
	}

	t.Run("discard changes", func(t *testing.T) {
		if err := s.DiscardChanges(tally.SectionRecounted); err != nil {
			t.Fatalf("DiscardChanges: %v", err)
		}
		if d := s.ShouldBlock(loc(s, tally.SectionRecounted), loc(s, tally.SectionVotersVotesCounts)); d.Kind != Allow {
			t.Errorf("after discard: %v", d.Kind)
		}
	})

	t.Run("save changes", func(t *testing.T) {
		_ = s.SetHasChanges(tally.SectionRecounted, true)
		ok, err := s.SaveChanges(ctx, tally.SectionRecounted, types.Values{"/recounted": true})
		if !ok || err != nil {
			t.Fatalf("SaveChanges = %v, %v", ok, err)
		}
		state := s.State()
		if state.TargetSection != "" || state.FormState.Current() != tally.SectionRecounted {
			t.Errorf("save changes moved on: target %q, current %s", state.TargetSection, state.FormState.Current())
		}
		if state.FormState.Furthest() != tally.SectionVotersVotesCounts {
			t.Errorf("furthest = %s", state.FormState.Furthest())
		}
		if st.lastRecord(t).VotersRecounts == nil {
			t.Errorf("recount sub-record not created")
		}
	})
}

func TestLeavingFlowDiscard(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	s := onVotersVotesCounts(t, st)
	_, _ = s.RegisterCurrentSection(tally.SectionRecounted)
	_ = s.SetHasChanges(tally.SectionRecounted, true)

	d := s.ShouldBlock(loc(s, tally.SectionRecounted), outside)
	if d.Kind != BlockAbort {
		t.Fatalf("decision = %v", d.Kind)
	}
	if err := s.DiscardAndLeave(context.Background()); err != nil {
		t.Fatalf("DiscardAndLeave: %v", err)
	}
	if st.deletes != 1 || s.State().Status != types.StatusDeleted {
		t.Errorf("deletes = %d, status = %s", st.deletes, s.State().Status)
	}
	if d := s.ShouldBlock(loc(s, tally.SectionRecounted), outside); d.Kind != Allow {
		t.Errorf("blocked after delete: %v", d.Kind)
	}
}

func TestLeavingFlowSaveMergesCache(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	s := onVotersVotesCounts(t, st)
	_ = s.SetHasChanges(tally.SectionVotersVotesCounts, true)
	draft := types.Values{"/voters_counts/poll_card_count": 99}
	if _, err := s.Navigate(loc(s, tally.SectionVotersVotesCounts), loc(s, tally.SectionRecounted), draft); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	_, _ = s.RegisterCurrentSection(tally.SectionRecounted)
	_ = s.SetHasChanges(tally.SectionRecounted, true)

	if d := s.ShouldBlock(loc(s, tally.SectionRecounted), outside); d.Kind != BlockAbort {
		t.Fatalf("decision = %v", d.Kind)
	}
	ok, err := s.SaveAndLeave(context.Background(), tally.SectionRecounted, types.Values{"/recounted": false})
	if !ok || err != nil {
		t.Fatalf("SaveAndLeave = %v, %v", ok, err)
	}
	record := st.lastRecord(t)
	if record.VotersCounts.PollCardCount != 99 {
		t.Errorf("cached draft not merged: %+v", record.VotersCounts)
	}
	if record.Recounted == nil || *record.Recounted {
		t.Errorf("recounted = %v", record.Recounted)
	}
	if s.State().Status != types.StatusAborted {
		t.Errorf("status = %s, want aborted", s.State().Status)
	}
	if d := s.ShouldBlock(loc(s, tally.SectionRecounted), outside); d.Kind != Allow {
		t.Errorf("blocked after abort: %v", d.Kind)
	}
}

func TestLeavingFlowSaveFailureStays(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	s := onVotersVotesCounts(t, st)
	_ = s.SetHasChanges(tally.SectionVotersVotesCounts, true)

	st.saveErr = &store.APIError{Status: http.StatusInternalServerError, Message: "boom"}
	ok, err := s.SaveAndLeave(context.Background(), tally.SectionVotersVotesCounts, nil)
	if ok || err == nil {
		t.Fatalf("SaveAndLeave = %v, %v", ok, err)
	}
	state := s.State()
	if state.Status != types.StatusIdle {
		t.Errorf("status = %s, want idle", state.Status)
	}
	if state.Error == nil || state.Error.Class != store.ClassServer {
		t.Errorf("error slot = %+v", state.Error)
	}
	if d := s.ShouldBlock(loc(s, tally.SectionVotersVotesCounts), outside); d.Kind != BlockAbort {
		t.Errorf("a recoverable failure must keep the user in the flow: %v", d.Kind)
	}

	st.saveErr = store.ErrUnavailable
	if ok, _ := s.SaveAndLeave(context.Background(), tally.SectionVotersVotesCounts, nil); ok {
		t.Fatal("SaveAndLeave succeeded")
	}
	if d := s.ShouldBlock(loc(s, tally.SectionVotersVotesCounts), outside); d.Kind != Allow {
		t.Errorf("a fatal failure must let the redirect through: %v", d.Kind)
	}
}
