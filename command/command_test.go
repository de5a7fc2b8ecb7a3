package command

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLocalParser(t *testing.T) {
	t.Parallel()
	p := NewLocalParser()
	tests := []struct {
		input string
		want  Command
	}{
		{"", Command{Kind: None}},
		{"   ", Command{Kind: None}},
		{"save", Command{Kind: Save}},
		{"  NEXT ", Command{Kind: Save}},
		{"set blank_votes_count 12", Command{Kind: Set, Args: []string{"blank_votes_count", "12"}, Text: "blank_votes_count 12"}},
		{"goto\tdifferences_counts", Command{Kind: Goto, Args: []string{"differences_counts"}, Text: "differences_counts"}},
		{"fill poll cards 120,  blank 3", Command{Kind: Fill, Args: []string{"poll", "cards", "120,", "blank", "3"}, Text: "poll cards 120,  blank 3"}},
		{"?", Command{Kind: Help}},
		{"exit", Command{Kind: Quit}},
	}
	for _, tt := range tests {
		got, err := p.ParseCommand(context.Background(), tt.input)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", tt.input, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}

	got, err := p.ParseCommand(context.Background(), "please save this")
	if !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("err = %v", err)
	}
	if got.Kind != None || got.Text != "please save this" {
		t.Errorf("unrecognized command = %+v", got)
	}
}

func TestCommandArg(t *testing.T) {
	t.Parallel()
	c := Command{Kind: Set, Args: []string{"a", "1"}}
	if c.Arg(0) != "a" || c.Arg(1) != "1" || c.Arg(2) != "" || c.Arg(-1) != "" {
		t.Errorf("Arg = %q %q %q", c.Arg(0), c.Arg(1), c.Arg(2))
	}
}

type stubParser struct {
	cmd   Command
	err   error
	calls int
}

func (p *stubParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	p.calls++
	return p.cmd, p.err
}

func TestFallbackParser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	failing := &stubParser{err: ErrUnrecognized}
	second := &stubParser{cmd: Command{Kind: Status}}
	third := &stubParser{cmd: Command{Kind: Quit}}

	got, err := NewFallbackParser(failing, second, third).ParseCommand(ctx, "how far along am I")
	if err != nil || got.Kind != Status {
		t.Fatalf("ParseCommand = %+v, %v", got, err)
	}
	if failing.calls != 1 || third.calls != 0 {
		t.Errorf("calls = %d, %d", failing.calls, third.calls)
	}

	down := errors.New("model down")
	_, err = NewFallbackParser(failing, &stubParser{err: down}).ParseCommand(ctx, "x")
	if !errors.Is(err, down) {
		t.Errorf("last error not returned: %v", err)
	}
	if _, err := NewFallbackParser().ParseCommand(ctx, "x"); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("empty chain err = %v", err)
	}
}

type scriptedModel struct {
	args  string
	calls int
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls++
	return &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
		{ID: "1", Function: schema.FunctionCall{Name: parseCommandToolName, Arguments: m.args}},
	}}, nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func TestToolParser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := &scriptedModel{args: `{"kind":"goto","args":["differences_counts"]}`}
	p, err := NewToolParser(m)
	if err != nil {
		t.Fatalf("NewToolParser: %v", err)
	}
	got, err := p.ParseCommand(ctx, "take me to the differences page")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if diff := cmp.Diff(Command{Kind: Goto, Args: []string{"differences_counts"}, Text: "differences_counts"}, got); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}

	m.args = `{"kind":"fill"}`
	got, _ = p.ParseCommand(ctx, "there were 120 poll cards")
	if got.Kind != Fill || got.Text != "there were 120 poll cards" {
		t.Errorf("fill keeps the input: %+v", got)
	}

	m.args = `{"kind":"dance"}`
	if _, err := p.ParseCommand(ctx, "dance"); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("invalid kind err = %v", err)
	}

	calls := m.calls
	if got, err := p.ParseCommand(ctx, " "); err != nil || got.Kind != None || m.calls != calls {
		t.Errorf("blank input = %+v, %v, calls %d", got, err, m.calls-calls)
	}
}

func TestLocalBeforeTool(t *testing.T) {
	t.Parallel()
	m := &scriptedModel{args: `{"kind":"status"}`}
	tp, _ := NewToolParser(m)
	p := NewFallbackParser(NewLocalParser(), tp)

	if got, _ := p.ParseCommand(context.Background(), "save"); got.Kind != Save || m.calls != 0 {
		t.Errorf("keyword went to the model: %+v, calls %d", got, m.calls)
	}
	if got, _ := p.ParseCommand(context.Background(), "where am I"); got.Kind != Status || m.calls != 1 {
		t.Errorf("free text = %+v, calls %d", got, m.calls)
	}
}
