package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/tallyentry/structured"
)

const (
	parseCommandToolName        = "parse_workstation_command"
	parseCommandToolDescription = "Classify a typist's input at the tally data-entry workstation into one command."
)

type parseCommandInput struct {
	Kind Kind     `json:"kind" jsonschema:"required,enum=none,enum=show,enum=set,enum=fill,enum=save,enum=accept,enum=goto,enum=leave,enum=discard,enum=cancel,enum=finalize,enum=status,enum=help,enum=quit,description=The command the typist asked for"`
	Args []string `json:"args,omitempty" jsonschema:"description=Arguments in command order, e.g. [path, value] for set or [section] for goto"`
}

// ToolParser asks a chat model to classify free-form input. It is meant to
// sit behind a LocalParser in a FallbackParser.
type ToolParser struct {
	chain *structured.Chain[string, parseCommandInput]
}

func NewToolParser(chatModel model.ToolCallingChatModel) (*ToolParser, error) {
	chain, err := structured.NewChain[string, parseCommandInput](
		chatModel,
		buildParseCommandPrompt,
		parseCommandToolName,
		parseCommandToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolParser{chain: chain}, nil
}

func (p *ToolParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{Kind: None}, nil
	}
	result, err := p.chain.Invoke(ctx, input)
	if err != nil {
		return Command{Kind: None, Text: input}, err
	}
	if !result.Kind.Valid() {
		return Command{Kind: None, Text: input}, fmt.Errorf("%w: %s returned %q", ErrUnrecognized, parseCommandToolName, result.Kind)
	}
	cmd := Command{Kind: result.Kind, Args: result.Args, Text: strings.Join(result.Args, " ")}
	if cmd.Kind == Fill {
		cmd.Text = input
	}
	return cmd, nil
}

func buildParseCommandPrompt(ctx context.Context, input string) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf(`You sit at a data-entry workstation where a typist transcribes a paper polling station tally sheet section by section.

Choose the command the typist means:
- show: display the current section, its values and validation results.
- set: change one field. args = [field path or name, value].
- fill: the typist dictates numbers from the sheet in free text.
- save: save the current section and continue to the next one.
- accept: acknowledge the errors and warnings of the current section.
- goto: open another section. args = [section id].
- leave: stop entering this polling station.
- discard: throw away unsaved changes or the whole entry when asked.
- cancel: stay where they are when asked whether to leave.
- finalize: finish the entry.
- status: list the sections and their state.
- help: list commands.
- quit: close the workstation.
- none: anything else.

Call the '%s' tool with the result.`, parseCommandToolName)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(input),
	}, nil
}
