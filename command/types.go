// Package command turns workstation input lines into commands.
package command

import (
	"context"
	"errors"
	"strings"
)

type Kind string

const (
	None     Kind = "none"
	Show     Kind = "show"
	Set      Kind = "set"
	Fill     Kind = "fill"
	Save     Kind = "save"
	Accept   Kind = "accept"
	Goto     Kind = "goto"
	Leave    Kind = "leave"
	Discard  Kind = "discard"
	Cancel   Kind = "cancel"
	Finalize Kind = "finalize"
	Status   Kind = "status"
	Help     Kind = "help"
	Quit     Kind = "quit"
)

var kinds = []Kind{None, Show, Set, Fill, Save, Accept, Goto, Leave, Discard, Cancel, Finalize, Status, Help, Quit}

var ErrUnrecognized = errors.New("command: unrecognized input")

func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Command is one parsed input line. Args are the whitespace separated words
// after the keyword; Text is the same remainder verbatim, used by fill.
type Command struct {
	Kind Kind
	Args []string
	Text string
}

func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

type Parser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}

func remainder(input string) (keyword, rest string) {
	input = strings.TrimSpace(input)
	i := strings.IndexFunc(input, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return input, ""
	}
	return input[:i], strings.TrimSpace(input[i:])
}
