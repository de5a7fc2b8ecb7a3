// Package tally defines the polling station tally record and its data-entry
// sections.
package tally

type VotersCounts struct {
	PollCardCount            int `json:"poll_card_count" jsonschema:"description=Number of valid poll cards"`
	ProxyCertificateCount    int `json:"proxy_certificate_count" jsonschema:"description=Number of valid proxy certificates"`
	VoterCardCount           int `json:"voter_card_count" jsonschema:"description=Number of valid voter cards"`
	TotalAdmittedVotersCount int `json:"total_admitted_voters_count" jsonschema:"description=Total number of admitted voters"`
}

type VotesCounts struct {
	VotesCandidatesCount int `json:"votes_candidates_count" jsonschema:"description=Total votes on candidates"`
	BlankVotesCount      int `json:"blank_votes_count" jsonschema:"description=Number of blank votes"`
	InvalidVotesCount    int `json:"invalid_votes_count" jsonschema:"description=Number of invalid votes"`
	TotalVotesCastCount  int `json:"total_votes_cast_count" jsonschema:"description=Total number of votes cast"`
}

type DifferencesCounts struct {
	MoreBallotsCount             int `json:"more_ballots_count" jsonschema:"description=More ballots counted than voters admitted"`
	FewerBallotsCount            int `json:"fewer_ballots_count" jsonschema:"description=Fewer ballots counted than voters admitted"`
	UnreturnedBallotsCount       int `json:"unreturned_ballots_count"`
	TooFewBallotsHandedOutCount  int `json:"too_few_ballots_handed_out_count"`
	TooManyBallotsHandedOutCount int `json:"too_many_ballots_handed_out_count"`
	OtherExplanationCount        int `json:"other_explanation_count"`
	NoExplanationCount           int `json:"no_explanation_count"`
}

type CandidateVotes struct {
	Number int `json:"number"`
	Votes  int `json:"votes"`
}

type PoliticalGroupVotes struct {
	Number         int              `json:"number"`
	Total          int              `json:"total"`
	CandidateVotes []CandidateVotes `json:"candidate_votes"`
}

// PollingStationResults is the transcribed tally sheet of one polling station.
type PollingStationResults struct {
	Recounted           *bool                 `json:"recounted,omitempty" jsonschema:"description=Whether the votes were recounted"`
	VotersCounts        VotersCounts          `json:"voters_counts"`
	VotesCounts         VotesCounts           `json:"votes_counts"`
	VotersRecounts      *VotersCounts         `json:"voters_recounts,omitempty" jsonschema:"description=Voter counts after the recount, present only when recounted"`
	DifferencesCounts   DifferencesCounts     `json:"differences_counts"`
	PoliticalGroupVotes []PoliticalGroupVotes `json:"political_group_votes"`
}

type PoliticalGroup struct {
	Number     int    `json:"number"`
	Name       string `json:"name"`
	Candidates int    `json:"candidates"`
}

type Election struct {
	Name            string           `json:"name"`
	PoliticalGroups []PoliticalGroup `json:"political_groups"`
}

// NewRecord returns an empty record shaped for the election's groups and
// candidates.
func NewRecord(election Election) PollingStationResults {
	groups := make([]PoliticalGroupVotes, 0, len(election.PoliticalGroups))
	for _, pg := range election.PoliticalGroups {
		candidates := make([]CandidateVotes, 0, pg.Candidates)
		for i := 1; i <= pg.Candidates; i++ {
			candidates = append(candidates, CandidateVotes{Number: i})
		}
		groups = append(groups, PoliticalGroupVotes{Number: pg.Number, CandidateVotes: candidates})
	}
	return PollingStationResults{PoliticalGroupVotes: groups}
}
