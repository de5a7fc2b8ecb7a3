package formstate

import (
	"fmt"

	"github.com/tbxark/tallyentry/types"
	"github.com/tbxark/tallyentry/validation"
)

type Bucket int

const (
	BucketErrors Bucket = iota
	BucketWarnings
)

func (b Bucket) String() string {
	if b == BucketWarnings {
		return "warnings"
	}
	return "errors"
}

// Distribute adds each result to every saved section owning one of its
// fields. Unsaved sections never receive results. Until the terminal section
// is reached, global results are dropped from all sections.
func (f FormState) Distribute(results []types.ValidationResult, bucket Bucket) (FormState, error) {
	out := f.next()
	for _, r := range results {
		owners, err := f.schema.SectionsForFields(r.Fields)
		if err != nil {
			return f, fmt.Errorf("distribute %s %s: %w", bucket, r.Code, err)
		}
		for _, id := range owners {
			s := out.sections[id]
			if !s.IsSaved {
				continue
			}
			out.bucket(&s, bucket).Add(r)
			out.sections[id] = s
		}
	}
	if !out.ReachedTerminal() {
		for id, s := range out.sections {
			s.Errors.RemoveGlobalResults(f.schema)
			s.Warnings.RemoveGlobalResults(f.schema)
			out.sections[id] = s
		}
	}
	return out, nil
}

// DistributeAll distributes both errors and warnings of a response.
func (f FormState) DistributeAll(results types.ValidationResults) (FormState, error) {
	out, err := f.Distribute(results.Errors, BucketErrors)
	if err != nil {
		return f, err
	}
	out, err = out.Distribute(results.Warnings, BucketWarnings)
	if err != nil {
		return f, err
	}
	return out, nil
}

func (f FormState) bucket(s *SectionStatus, b Bucket) *validation.ResultSet {
	if b == BucketWarnings {
		return s.Warnings
	}
	return s.Errors
}
