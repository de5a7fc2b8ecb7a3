package patch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/tallyentry/types"
)

type counts struct {
	Cards int `json:"cards"`
	Total int `json:"total"`
}

type record struct {
	Flag     *bool    `json:"flag,omitempty"`
	Counts   counts   `json:"counts"`
	Recounts *counts  `json:"recounts,omitempty"`
	Groups   []counts `json:"groups"`
}

func TestMergeSectionTouchesOnlyValues(t *testing.T) {
	t.Parallel()
	base := record{Counts: counts{Cards: 5, Total: 9}, Groups: []counts{{Cards: 1}, {Cards: 2}}}
	owned := []string{"/counts/cards", "/counts/total", "/groups/1/total"}

	got, err := MergeSection(base, types.Values{"/counts/total": 0, "/groups/1/total": 7}, owned)
	if err != nil {
		t.Fatalf("MergeSection: %v", err)
	}
	want := record{Counts: counts{Cards: 5, Total: 0}, Groups: []counts{{Cards: 1}, {Cards: 2, Total: 7}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if base.Counts.Total != 9 {
		t.Errorf("input record modified")
	}
}

func TestMergeSectionCreatesMissingParents(t *testing.T) {
	t.Parallel()
	got, err := MergeSection(record{}, types.Values{"/flag": false, "/recounts/cards": 3}, []string{"/flag", "/recounts/cards"})
	if err != nil {
		t.Fatalf("MergeSection: %v", err)
	}
	if got.Flag == nil || *got.Flag {
		t.Errorf("flag = %v", got.Flag)
	}
	if got.Recounts == nil || got.Recounts.Cards != 3 {
		t.Errorf("recounts = %+v", got.Recounts)
	}
}

func TestMergeSectionRejectsForeignPaths(t *testing.T) {
	t.Parallel()
	base := record{}
	if _, err := MergeSection(base, types.Values{"/counts/cards": 1}, []string{"/flag"}); !errors.Is(err, ErrNotOwned) {
		t.Errorf("err = %v", err)
	}
	if _, err := MergeSection(base, types.Values{"/counts/cards": 1}, nil); !errors.Is(err, ErrNotOwned) {
		t.Errorf("section without fields accepted values: %v", err)
	}
	if got, err := MergeSection(base, nil, nil); err != nil || got.Flag != nil {
		t.Errorf("empty merge = %+v, %v", got, err)
	}
}

func TestMergeSectionTypeMismatch(t *testing.T) {
	t.Parallel()
	if _, err := MergeSection(record{}, types.Values{"/counts/cards": "many"}, []string{"/counts/cards"}); err == nil {
		t.Errorf("string accepted for an int field")
	}
}

func TestFromValuesOwnershipIsExact(t *testing.T) {
	t.Parallel()
	owned := []string{"/groups/1/total"}
	for _, path := range []string{"/groups/1", "/groups/1/total/x", "/groups/-/total", "/groups/*/total", "/groups/2/total"} {
		if _, err := FromValues(types.Values{path: 1}, owned); !errors.Is(err, ErrNotOwned) {
			t.Errorf("FromValues(%q) = %v", path, err)
		}
	}
	got, err := FromValues(types.Values{"/groups/1/total": 1}, owned)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	want := []Operation{{Op: OperationReplace, Path: "/groups/1/total", Value: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestFixOperation(t *testing.T) {
	t.Parallel()
	doc := []byte(`{"counts":{"cards":1},"recounts":null}`)
	ops := FixOperation(doc, []Operation{
		{Op: OperationReplace, Path: "/counts/total", Value: 2},
		{Op: OperationRemove, Path: "/flag"},
		{Op: OperationReplace, Path: "/recounts/cards", Value: 3},
		{Op: OperationReplace, Path: "/counts/cards", Value: 4},
	})
	want := []Operation{
		{Op: OperationAdd, Path: "/counts/total", Value: 2},
		{Op: OperationAdd, Path: "/recounts", Value: map[string]any{}},
		{Op: OperationAdd, Path: "/recounts/cards", Value: 3},
		{Op: OperationReplace, Path: "/counts/cards", Value: 4},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()
	flag := true
	r := record{Flag: &flag, Counts: counts{Cards: 4}, Groups: []counts{{Total: 8}}}
	got, err := Extract(r, []string{"/flag", "/counts/cards", "/groups/0/total", "/recounts/cards"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := types.Values{"/flag": true, "/counts/cards": float64(4), "/groups/0/total": float64(8)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}
