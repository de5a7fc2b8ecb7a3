// Package validation holds deduplicated sets of remote validation results.
package validation

import (
	"sort"
	"strings"

	"github.com/tbxark/tallyentry/types"
)

// Classifier decides whether a result code concerns the whole record.
type Classifier interface {
	IsGlobal(code string) bool
}

// ResultSet is keyed by code plus the exact field list. The zero value is an
// empty set ready for use.
type ResultSet struct {
	items map[string]types.ValidationResult
}

func NewResultSet(results ...types.ValidationResult) *ResultSet {
	s := &ResultSet{}
	for _, r := range results {
		s.Add(r)
	}
	return s
}

func resultKey(r types.ValidationResult) string {
	return r.Code + "\x00" + strings.Join(r.Fields, "\x00")
}

// Add inserts r unless an identical result is present.
func (s *ResultSet) Add(r types.ValidationResult) {
	if s.items == nil {
		s.items = make(map[string]types.ValidationResult)
	}
	key := resultKey(r)
	if _, ok := s.items[key]; ok {
		return
	}
	fields := make([]string, len(r.Fields))
	copy(fields, r.Fields)
	s.items[key] = types.ValidationResult{Code: r.Code, Fields: fields}
}

func (s *ResultSet) Includes(code string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.items {
		if r.Code == code {
			return true
		}
	}
	return false
}

func (s *ResultSet) IsEmpty() bool {
	return s.Size() == 0
}

func (s *ResultSet) Size() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Codes returns the distinct codes, sorted.
func (s *ResultSet) Codes() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, s.Size())
	for _, r := range s.Results() {
		if !seen[r.Code] {
			seen[r.Code] = true
			out = append(out, r.Code)
		}
	}
	return out
}

// Fields returns the union of all member field paths, sorted.
func (s *ResultSet) Fields() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range s.Results() {
		for _, f := range r.Fields {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Results returns the members ordered by code, then by fields.
func (s *ResultSet) Results() []types.ValidationResult {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.ValidationResult, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.items[k])
	}
	return out
}

func (s *ResultSet) HasOnlyGlobalResults(c Classifier) bool {
	if s.IsEmpty() {
		return false
	}
	for _, r := range s.items {
		if !c.IsGlobal(r.Code) {
			return false
		}
	}
	return true
}

// RemoveGlobalResults filters the set in place.
func (s *ResultSet) RemoveGlobalResults(c Classifier) {
	if s == nil {
		return
	}
	for k, r := range s.items {
		if c.IsGlobal(r.Code) {
			delete(s.items, k)
		}
	}
}

func (s *ResultSet) Clone() *ResultSet {
	out := &ResultSet{}
	if s == nil {
		return out
	}
	for _, r := range s.items {
		out.Add(r)
	}
	return out
}

// Equal reports whether both sets hold the same results.
func (s *ResultSet) Equal(other *ResultSet) bool {
	if s.Size() != other.Size() {
		return false
	}
	if s == nil || other == nil {
		return true
	}
	for k := range s.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}
