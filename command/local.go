package command

import (
	"context"
	"fmt"
	"strings"
)

// LocalParser maps the first word of the input to a command kind.
type LocalParser struct {
	Keywords map[string]Kind
}

func NewLocalParser() *LocalParser {
	return &LocalParser{Keywords: map[string]Kind{
		"show": Show, "ls": Show, "list": Show,
		"set": Set,
		"fill": Fill, "read": Fill,
		"save": Save, "next": Save, "continue": Save,
		"accept": Accept, "ack": Accept,
		"goto": Goto, "go": Goto, "back": Goto,
		"leave": Leave,
		"discard": Discard,
		"cancel": Cancel, "stay": Cancel,
		"finalize": Finalize, "finalise": Finalize, "done": Finalize,
		"status": Status,
		"help": Help, "?": Help,
		"quit": Quit, "exit": Quit,
	}}
}

func (p *LocalParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	keyword, rest := remainder(input)
	if keyword == "" {
		return Command{Kind: None}, nil
	}
	kind, ok := p.Keywords[strings.ToLower(keyword)]
	if !ok {
		return Command{Kind: None, Text: strings.TrimSpace(input)}, fmt.Errorf("%w: %q", ErrUnrecognized, keyword)
	}
	return Command{Kind: kind, Args: strings.Fields(rest), Text: rest}, nil
}

// FallbackParser tries each parser in order and returns the first success.
type FallbackParser struct {
	parsers []Parser
}

func NewFallbackParser(parsers ...Parser) *FallbackParser {
	return &FallbackParser{parsers: parsers}
}

func (p *FallbackParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	lastErr := ErrUnrecognized
	for _, parser := range p.parsers {
		cmd, err := parser.ParseCommand(ctx, input)
		if err == nil {
			return cmd, nil
		}
		lastErr = err
	}
	return Command{Kind: None, Text: strings.TrimSpace(input)}, lastErr
}
