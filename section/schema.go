// Package section describes the static layout of a data-entry form: the
// ordered sections and the record fields each of them owns.
package section

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/tallyentry/types"
)

var (
	ErrUnknownField   = errors.New("section: unknown field")
	ErrUnknownSection = errors.New("section: unknown section")
	ErrInvalidSchema  = errors.New("section: invalid schema")
)

// DefaultGlobalCodes are the result codes that concern the record as a whole.
var DefaultGlobalCodes = []string{"F204"}

// UnknownFieldError reports a field path that no section owns. It is a schema
// defect, never a user-facing error.
type UnknownFieldError struct {
	Path string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownField.Error(), e.Path)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

type Definition struct {
	ID     types.SectionID
	Fields []string
}

type Section struct {
	ID     types.SectionID
	Index  int
	Fields []string
}

// Schema is immutable after New.
type Schema struct {
	sections []Section
	index    map[types.SectionID]int
	owners   map[string][]types.SectionID
	parents  map[string]types.SectionID
	global   map[string]bool
}

type Option func(*Schema)

// WithGlobalCodes replaces the set of result codes classified as global.
func WithGlobalCodes(codes ...string) Option {
	return func(s *Schema) {
		s.global = make(map[string]bool, len(codes))
		for _, code := range codes {
			s.global[code] = true
		}
	}
}

// New builds a schema from definitions in display order. The last definition
// is the terminal section.
func New(defs []Definition, opts ...Option) (*Schema, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrInvalidSchema)
	}
	s := &Schema{
		sections: make([]Section, 0, len(defs)),
		index:    make(map[types.SectionID]int, len(defs)),
		owners:   make(map[string][]types.SectionID),
		parents:  make(map[string]types.SectionID),
	}
	WithGlobalCodes(DefaultGlobalCodes...)(s)
	for _, opt := range opts {
		opt(s)
	}

	for i, def := range defs {
		id := types.SectionID(strings.TrimSpace(string(def.ID)))
		if id == "" {
			return nil, fmt.Errorf("%w: section %d has no id", ErrInvalidSchema, i)
		}
		if _, dup := s.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate section %q", ErrInvalidSchema, id)
		}
		fields := make([]string, 0, len(def.Fields))
		seen := make(map[string]bool, len(def.Fields))
		for _, field := range def.Fields {
			if !strings.HasPrefix(field, "/") {
				return nil, fmt.Errorf("%w: field %q of %q is not a JSON pointer", ErrInvalidSchema, field, id)
			}
			if seen[field] {
				continue
			}
			seen[field] = true
			fields = append(fields, field)
			s.owners[field] = append(s.owners[field], id)
			for _, parent := range parentPointers(field) {
				if _, ok := s.parents[parent]; !ok {
					s.parents[parent] = id
				}
			}
		}
		s.index[id] = i
		s.sections = append(s.sections, Section{ID: id, Index: i, Fields: fields})
	}
	return s, nil
}

func (s *Schema) Len() int {
	return len(s.sections)
}

// Sections returns all sections in index order.
func (s *Schema) Sections() []Section {
	out := make([]Section, len(s.sections))
	copy(out, s.sections)
	return out
}

func (s *Schema) Section(id types.SectionID) (Section, bool) {
	i, ok := s.index[id]
	if !ok {
		return Section{}, false
	}
	return s.sections[i], true
}

func (s *Schema) Has(id types.SectionID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Schema) Index(id types.SectionID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

func (s *Schema) At(i int) (Section, bool) {
	if i < 0 || i >= len(s.sections) {
		return Section{}, false
	}
	return s.sections[i], true
}

func (s *Schema) First() types.SectionID {
	return s.sections[0].ID
}

// Terminal returns the final "review and save" section.
func (s *Schema) Terminal() types.SectionID {
	return s.sections[len(s.sections)-1].ID
}

func (s *Schema) Fields(id types.SectionID) []string {
	sec, ok := s.Section(id)
	if !ok {
		return nil
	}
	out := make([]string, len(sec.Fields))
	copy(out, sec.Fields)
	return out
}

// IsGlobal reports whether results with this code concern the whole record.
func (s *Schema) IsGlobal(code string) bool {
	return s.global[code]
}

// SectionForField returns the section owning path. An exact match wins;
// otherwise path is treated as a group and the first section owning a field
// beneath it is returned.
func (s *Schema) SectionForField(path string) (types.SectionID, error) {
	if owners := s.owners[path]; len(owners) > 0 {
		return owners[0], nil
	}
	if id, ok := s.parents[path]; ok {
		return id, nil
	}
	return "", &UnknownFieldError{Path: path}
}

// SectionsForFields returns every section owning at least one of paths, in
// index order.
func (s *Schema) SectionsForFields(paths []string) ([]types.SectionID, error) {
	hit := make(map[types.SectionID]bool)
	for _, path := range paths {
		if owners := s.owners[path]; len(owners) > 0 {
			for _, id := range owners {
				hit[id] = true
			}
			continue
		}
		id, err := s.SectionForField(path)
		if err != nil {
			return nil, err
		}
		hit[id] = true
	}
	out := make([]types.SectionID, 0, len(hit))
	for _, sec := range s.sections {
		if hit[sec.ID] {
			out = append(out, sec.ID)
		}
	}
	return out, nil
}
