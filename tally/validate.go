package tally

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/tbxark/tallyentry/types"
)

// Validate applies the reference tally checks. It is used as the validator of
// the local store; sessions treat its output as opaque results.
func Validate(record PollingStationResults) types.ValidationResults {
	results := types.ValidationResults{
		Errors:   []types.ValidationResult{},
		Warnings: []types.ValidationResult{},
	}
	errorf := func(code string, fields ...string) {
		results.Errors = append(results.Errors, types.ValidationResult{Code: code, Fields: fields})
	}
	warnf := func(code string, fields ...string) {
		results.Warnings = append(results.Warnings, types.ValidationResult{Code: code, Fields: fields})
	}

	vc := record.VotersCounts
	if vc.PollCardCount+vc.ProxyCertificateCount+vc.VoterCardCount != vc.TotalAdmittedVotersCount {
		errorf("F201",
			"/voters_counts/poll_card_count",
			"/voters_counts/proxy_certificate_count",
			"/voters_counts/voter_card_count",
			"/voters_counts/total_admitted_voters_count")
	}

	votes := record.VotesCounts
	if votes.VotesCandidatesCount+votes.BlankVotesCount+votes.InvalidVotesCount != votes.TotalVotesCastCount {
		errorf("F202",
			"/votes_counts/votes_candidates_count",
			"/votes_counts/blank_votes_count",
			"/votes_counts/invalid_votes_count",
			"/votes_counts/total_votes_cast_count")
	}

	admitted := vc.TotalAdmittedVotersCount
	admittedField := "/voters_counts/total_admitted_voters_count"
	if rc := record.VotersRecounts; rc != nil {
		if rc.PollCardCount+rc.ProxyCertificateCount+rc.VoterCardCount != rc.TotalAdmittedVotersCount {
			errorf("F203",
				"/voters_recounts/poll_card_count",
				"/voters_recounts/proxy_certificate_count",
				"/voters_recounts/voter_card_count",
				"/voters_recounts/total_admitted_voters_count")
		}
		admitted = rc.TotalAdmittedVotersCount
		admittedField = "/voters_recounts/total_admitted_voters_count"
	}

	groupTotal := 0
	for i, pg := range record.PoliticalGroupVotes {
		groupTotal += pg.Total
		candidates := 0
		for _, cv := range pg.CandidateVotes {
			candidates += cv.Votes
		}
		if candidates != pg.Total {
			errorf("F401", fmt.Sprintf("/political_group_votes/%d/total", i))
		}
	}
	if len(record.PoliticalGroupVotes) > 0 && groupTotal != votes.VotesCandidatesCount {
		errorf("F204", "/votes_counts/votes_candidates_count", "/political_group_votes")
	}

	diff := record.DifferencesCounts
	cast := votes.TotalVotesCastCount
	if cast > admitted && diff.MoreBallotsCount != cast-admitted {
		errorf("F301", "/differences_counts/more_ballots_count", "/votes_counts/total_votes_cast_count", admittedField)
	}
	if cast < admitted && diff.FewerBallotsCount != admitted-cast {
		errorf("F302", "/differences_counts/fewer_ballots_count", "/votes_counts/total_votes_cast_count", admittedField)
	}

	if cast > 0 && votes.BlankVotesCount*100 >= cast*3 {
		warnf("W201", "/votes_counts/blank_votes_count")
	}
	if cast > 0 && votes.InvalidVotesCount*100 >= cast*3 {
		warnf("W202", "/votes_counts/invalid_votes_count")
	}
	if admitted > 0 && cast != admitted {
		d := cast - admitted
		if d < 0 {
			d = -d
		}
		if d*100 >= admitted*2 {
			warnf("W203", "/votes_counts/total_votes_cast_count", admittedField)
		}
	}
	return results
}

// Validator adapts Validate to raw record payloads.
func Validator(ctx context.Context, data json.RawMessage) (types.ValidationResults, error) {
	var record PollingStationResults
	if err := sonic.Unmarshal(data, &record); err != nil {
		return types.ValidationResults{}, fmt.Errorf("decode polling station results: %w", err)
	}
	return Validate(record), nil
}
