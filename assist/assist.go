// Package assist proposes section values from a free-text reading of the
// paper tally sheet. Proposals are drafts: they still go through the normal
// submission pipeline.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/tallyentry/patch"
	"github.com/tbxark/tallyentry/structured"
	"github.com/tbxark/tallyentry/types"
)

const (
	proposeToolName        = "propose_section_values"
	proposeToolDescription = "Propose values for the fields of one data-entry section, read from the typist's transcription of the paper tally sheet. Only include fields the transcription states explicitly."
)

var ErrEmptyTranscript = errors.New("assist: transcript is empty")

type Request struct {
	Section types.SectionID
	// Fields are the JSON pointers the section owns.
	Fields []string
	// Current holds the values already entered for the section.
	Current    types.Values
	Transcript string
	// RecordSchema optionally describes the whole record.
	RecordSchema string
}

type FieldValue struct {
	Path  string `json:"path" jsonschema:"required,description=JSON pointer of the field; must be one of the allowed paths"`
	Value any    `json:"value" jsonschema:"required,description=Whole number or boolean as written on the sheet"`
}

type Proposal struct {
	Values []FieldValue `json:"values" jsonschema:"description=Values read from the transcription; empty when nothing applies"`
}

type Assistant struct {
	chain *structured.Chain[*Request, Proposal]
}

func New(chatModel model.ToolCallingChatModel) (*Assistant, error) {
	chain, err := structured.NewChain[*Request, Proposal](chatModel, buildPrompt, proposeToolName, proposeToolDescription)
	if err != nil {
		return nil, err
	}
	return &Assistant{chain: chain}, nil
}

// Propose asks the model for values of req.Section. Values for fields the
// section does not own are rejected with patch.ErrNotOwned.
func (a *Assistant) Propose(ctx context.Context, req *Request) (types.Values, error) {
	if req == nil || strings.TrimSpace(req.Transcript) == "" {
		return nil, ErrEmptyTranscript
	}
	proposal, err := a.chain.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("propose values for %s: %w", req.Section, err)
	}

	values := make(types.Values, len(proposal.Values))
	for _, fv := range proposal.Values {
		if fv.Value == nil {
			continue
		}
		values[fv.Path] = fv.Value
	}
	if _, err := patch.FromValues(values, req.Fields); err != nil {
		return nil, fmt.Errorf("proposal for %s: %w", req.Section, err)
	}
	slog.Debug("Values proposed", "section", req.Section, "fields", len(values))
	return values, nil
}

func buildPrompt(ctx context.Context, req *Request) ([]*schema.Message, error) {
	system := fmt.Sprintf("You help a typist transcribe a paper election tally sheet. Call %s with the values the transcription states for the allowed fields. Never guess, never compute totals the sheet does not show, and never use paths outside the allowed list.", proposeToolName)

	parts := []string{
		fmt.Sprintf("# Section:\n%s", req.Section),
		fmt.Sprintf("# Allowed paths and current values:\n%s", types.FormatValues(req.Fields, req.Current)),
	}
	if req.RecordSchema != "" {
		parts = append(parts, fmt.Sprintf("# Record JSON schema:\n%s", req.RecordSchema))
	}
	parts = append(parts, fmt.Sprintf("# Transcription:\n%s", req.Transcript))

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(strings.Join(parts, "\n\n")),
	}, nil
}
