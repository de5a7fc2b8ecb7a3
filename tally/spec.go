package tally

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"

	"github.com/tbxark/tallyentry/section"
	"github.com/tbxark/tallyentry/types"
)

const (
	SectionRecounted         types.SectionID = "recounted"
	SectionVotersVotesCounts types.SectionID = "voters_votes_counts"
	SectionDifferencesCounts types.SectionID = "differences_counts"
	SectionSave              types.SectionID = "save"
)

// PoliticalGroupSection names the section holding the votes of group number.
func PoliticalGroupSection(number int) types.SectionID {
	return types.SectionID(fmt.Sprintf("political_group_votes_%d", number))
}

// Spec binds the tally record to its data-entry sections.
type Spec struct {
	election Election
	schema   *section.Schema
}

func NewSpec(election Election, opts ...section.Option) (*Spec, error) {
	defs := []section.Definition{
		{ID: SectionRecounted, Fields: []string{"/recounted"}},
		{ID: SectionVotersVotesCounts, Fields: concat(
			section.LeafPointers[VotersCounts]("/voters_counts"),
			section.LeafPointers[VotesCounts]("/votes_counts"),
			section.LeafPointers[VotersCounts]("/voters_recounts"),
		)},
		{ID: SectionDifferencesCounts, Fields: section.LeafPointers[DifferencesCounts]("/differences_counts")},
	}
	for i, pg := range election.PoliticalGroups {
		fields := []string{fmt.Sprintf("/political_group_votes/%d/total", i)}
		for j := 0; j < pg.Candidates; j++ {
			fields = append(fields, fmt.Sprintf("/political_group_votes/%d/candidate_votes/%d/votes", i, j))
		}
		defs = append(defs, section.Definition{ID: PoliticalGroupSection(pg.Number), Fields: fields})
	}
	defs = append(defs, section.Definition{ID: SectionSave})

	schema, err := section.New(defs, opts...)
	if err != nil {
		return nil, fmt.Errorf("build tally schema: %w", err)
	}
	return &Spec{election: election, schema: schema}, nil
}

func (s *Spec) Schema() *section.Schema {
	return s.schema
}

func (s *Spec) Election() Election {
	return s.election
}

// Normalize keeps the recount sub-record in line with the recounted answer:
// it exists, zero-initialised if needed, exactly when recounted is true.
func (s *Spec) Normalize(record PollingStationResults) PollingStationResults {
	if record.Recounted != nil && *record.Recounted {
		if record.VotersRecounts == nil {
			record.VotersRecounts = &VotersCounts{}
		}
		return record
	}
	record.VotersRecounts = nil
	return record
}

// NewRecord returns the empty record of the spec's election.
func (s *Spec) NewRecord() PollingStationResults {
	return NewRecord(s.election)
}

// JSONSchema describes the record for tooling and prompts.
func (s *Spec) JSONSchema() (string, error) {
	schema := jsonschema.Reflect(&PollingStationResults{})
	schema.Title = "Polling station results"
	schema.Description = "Tally sheet of one polling station: voters, votes, differences and votes per political group."
	raw, err := sonic.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(raw), nil
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
