package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/tbxark/tallyentry/assist"
	"github.com/tbxark/tallyentry/command"
	"github.com/tbxark/tallyentry/session"
	"github.com/tbxark/tallyentry/tally"
	"github.com/tbxark/tallyentry/types"
)

// outsideFlow is where leave navigates to.
const outsideFlow session.Location = "/"

var errDone = errors.New("session done")

// workstation is the interactive prompt over one session. It plays the part
// of the data-entry pages: it holds the draft of the displayed section and
// asks the session before every navigation.
type workstation struct {
	session      *session.Session[tally.PollingStationResults]
	parser       command.Parser
	assistant    *assist.Assistant
	recordSchema string

	in  *bufio.Scanner
	out io.Writer

	section  types.SectionID
	location session.Location
	draft    types.Values
}

func newWorkstation(s *session.Session[tally.PollingStationResults], parser command.Parser, in io.Reader, out io.Writer) *workstation {
	return &workstation{
		session: s,
		parser:  parser,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

func (w *workstation) Run(ctx context.Context) error {
	if err := w.session.Claim(ctx); err != nil {
		return err
	}
	if err := w.open(w.session.State().FormState.Current()); err != nil {
		return err
	}
	w.printf("Entering %s, %d%% done. Type help for commands.\n", w.session.RecordID(), w.session.State().Progress())
	w.show()

	for {
		w.printf("[%s]> ", w.section)
		if !w.in.Scan() {
			w.printf("\n")
			return w.in.Err()
		}
		cmd, err := w.parser.ParseCommand(ctx, w.in.Text())
		if err != nil {
			w.printf("Unknown command %q, type help.\n", strings.TrimSpace(w.in.Text()))
			continue
		}
		err = w.handle(ctx, cmd)
		if errors.Is(err, errDone) {
			return nil
		}
		if err != nil {
			w.printf("%v\n", err)
		}
		if w.reportFailure() {
			return nil
		}
	}
}

func (w *workstation) handle(ctx context.Context, cmd command.Command) error {
	switch cmd.Kind {
	case command.None:
		return nil
	case command.Show:
		w.show()
	case command.Set:
		return w.set(cmd.Arg(0), strings.Join(cmd.Args[min(1, len(cmd.Args)):], " "))
	case command.Fill:
		return w.fill(ctx, cmd.Text)
	case command.Accept:
		return w.accept()
	case command.Save:
		return w.save(ctx)
	case command.Goto:
		return w.gotoSection(ctx, types.SectionID(cmd.Arg(0)))
	case command.Leave:
		return w.leave(ctx)
	case command.Finalize:
		return w.finalize(ctx)
	case command.Status:
		w.status()
	case command.Help:
		w.help()
	case command.Quit:
		w.printf("Entry kept, you can resume it later.\n")
		return errDone
	default:
		w.printf("Nothing to %s here.\n", cmd.Kind)
	}
	return nil
}

// open displays section id, restoring its cached draft if there is one.
func (w *workstation) open(id types.SectionID) error {
	restored, err := w.session.RegisterCurrentSection(id)
	if err != nil {
		return err
	}
	values, err := w.session.Values(id)
	if err != nil {
		return err
	}
	for path, v := range restored {
		values[path] = v
	}
	if len(restored) > 0 {
		if err := w.session.SetHasChanges(id, true); err != nil {
			return err
		}
	}
	w.section = id
	w.location = w.session.Router().Location(id)
	w.draft = values
	return nil
}

func (w *workstation) set(field, raw string) error {
	if field == "" {
		return fmt.Errorf("usage: set <field> <value>")
	}
	path, err := resolveField(w.session.Schema().Fields(w.section), field)
	if err != nil {
		return err
	}
	value, err := parseValue(raw)
	if err != nil {
		return err
	}
	w.draft[path] = value
	if err := w.session.SetHasChanges(w.section, true); err != nil {
		return err
	}
	w.printf("%s = %v\n", path, displayValue(value))
	return nil
}

func (w *workstation) fill(ctx context.Context, transcript string) error {
	if w.assistant == nil {
		return fmt.Errorf("no assistant configured, use set")
	}
	proposed, err := w.assistant.Propose(ctx, &assist.Request{
		Section:      w.section,
		Fields:       w.session.Schema().Fields(w.section),
		Current:      w.draft,
		Transcript:   transcript,
		RecordSchema: w.recordSchema,
	})
	if err != nil {
		return err
	}
	if len(proposed) == 0 {
		w.printf("Nothing recognised for %s.\n", w.section)
		return nil
	}
	for path, v := range proposed {
		w.draft[path] = v
	}
	if err := w.session.SetHasChanges(w.section, true); err != nil {
		return err
	}
	w.printf("%s", types.FormatValues(sortedKeys(proposed), proposed))
	return nil
}

func (w *workstation) accept() error {
	sec, _ := w.session.State().FormState.Section(w.section)
	if !sec.HasResults() {
		w.printf("%s has no errors or warnings to accept.\n", w.section)
		return nil
	}
	if err := w.session.AcceptErrorsAndWarnings(w.section, true); err != nil {
		return err
	}
	w.printf("Errors and warnings of %s accepted.\n", w.section)
	return nil
}

func (w *workstation) save(ctx context.Context) error {
	sec, _ := w.session.State().FormState.Section(w.section)
	ok, err := w.session.Submit(ctx, w.section, w.draft, session.SubmitOptions{
		AcceptWarnings:              sec.AcceptErrorsAndWarnings,
		ContinueToNextSection:       true,
		ShowAcceptErrorsAndWarnings: true,
	})
	if err != nil {
		return err
	}
	if !ok {
		if sec, _ := w.session.State().FormState.Section(w.section); sec.AcceptErrorsAndWarningsError {
			w.printf("Check the errors and warnings below, then accept them before saving again.\n")
			w.printResults(sec.Errors.Results(), sec.Warnings.Results())
		}
		return nil
	}

	state := w.session.State()
	target := state.TargetSection
	if target == "" {
		sec, _ := state.FormState.Section(w.section)
		w.printf("Saved %s.\n", w.section)
		w.printResults(sec.Errors.Results(), sec.Warnings.Results())
		return nil
	}
	w.session.ResetTargetSection()
	w.printf("Saved %s, %d%% done.\n", w.section, state.Progress())
	if err := w.move(ctx, target); err != nil {
		return err
	}
	w.show()
	return nil
}

// move navigates to id through the guard and asks about unsaved changes
// when needed. A cancelled dialog leaves the current section displayed.
func (w *workstation) move(ctx context.Context, id types.SectionID) error {
	next := w.session.Router().Location(id)
	d, err := w.session.Navigate(w.location, next, w.draft)
	if err != nil {
		return err
	}
	if d.Kind == session.BlockUnsaved {
		switch w.ask(ctx, fmt.Sprintf("%s has unsaved changes. save, discard or cancel?", d.Section)) {
		case command.Save:
			ok, err := w.session.SaveChanges(ctx, d.Section, w.draft)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s was not saved", d.Section)
			}
		case command.Discard:
			if err := w.session.DiscardChanges(d.Section); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return w.open(id)
}

func (w *workstation) gotoSection(ctx context.Context, id types.SectionID) error {
	if id == "" {
		return fmt.Errorf("usage: goto <section>")
	}
	fs := w.session.State().FormState
	index, ok := w.session.Schema().Index(id)
	if !ok {
		return fmt.Errorf("unknown section %q", id)
	}
	if !fs.CanMoveTo(index) {
		return fmt.Errorf("%s is not reachable yet, the furthest section is %s", id, fs.Furthest())
	}
	if err := w.move(ctx, id); err != nil {
		return err
	}
	w.show()
	return nil
}

func (w *workstation) leave(ctx context.Context) error {
	d := w.session.ShouldBlock(w.location, outsideFlow)
	if d.Kind != session.BlockAbort {
		return errDone
	}
	switch w.ask(ctx, "Leave this entry: save your work, discard the whole entry, or cancel?") {
	case command.Save:
		ok, err := w.session.SaveAndLeave(ctx, w.section, w.draft)
		if err != nil {
			return err
		}
		if ok {
			w.printf("Entry saved, %d%% done.\n", w.session.State().Progress())
			return errDone
		}
	case command.Discard:
		if err := w.session.DiscardAndLeave(ctx); err != nil {
			return err
		}
		w.printf("Entry discarded.\n")
		return errDone
	}
	return nil
}

func (w *workstation) finalize(ctx context.Context) error {
	if w.section != w.session.Schema().Terminal() {
		return fmt.Errorf("finish all sections first, then finalize from %s", w.session.Schema().Terminal())
	}
	if err := w.session.Finalize(ctx); err != nil {
		return err
	}
	w.printf("Entry finalised.\n")
	return errDone
}

// ask reads one answer to a dialog. Anything other than save or discard
// cancels.
func (w *workstation) ask(ctx context.Context, question string) command.Kind {
	w.printf("%s ", question)
	if !w.in.Scan() {
		return command.Cancel
	}
	cmd, err := w.parser.ParseCommand(ctx, w.in.Text())
	if err != nil {
		return command.Cancel
	}
	if cmd.Kind == command.Save || cmd.Kind == command.Discard {
		return cmd.Kind
	}
	return command.Cancel
}

// reportFailure prints the session error slot and clears it when the user
// can carry on. It reports whether the session cannot continue.
func (w *workstation) reportFailure() bool {
	state := w.session.State()
	if state.Error == nil {
		return state.Status.IsTerminal()
	}
	if state.Error.Fatal() {
		w.printf("The entry cannot continue: %v\n", state.Error.Err)
		return true
	}
	w.printf("Store reported a %s error: %v\n", state.Error.Class, state.Error.Err)
	w.session.DismissError()
	return false
}

func (w *workstation) show() {
	state := w.session.State()
	sec, _ := state.FormState.Section(w.section)
	fields := w.session.Schema().Fields(w.section)
	w.printf("\n## %s\n", w.section)
	if len(fields) > 0 {
		w.printf("%s", types.FormatValues(fields, w.draft))
	} else {
		w.printf("All sections entered. Type finalize to finish or goto <section> to review.\n")
	}
	w.printResults(sec.Errors.Results(), sec.Warnings.Results())
	if sec.HasResults() && !sec.AcceptErrorsAndWarnings {
		w.printf("Type accept once you have checked the sheet.\n")
	}
}

func (w *workstation) printResults(errs, warnings []types.ValidationResult) {
	if s := types.FormatResults("Errors", errs); s != "" {
		w.printf("%s", s)
	}
	if s := types.FormatResults("Warnings", warnings); s != "" {
		w.printf("%s", s)
	}
}

func (w *workstation) status() {
	state := w.session.State()
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("", "Section", "Saved", "Changes", "Errors", "Warnings", "Accepted")
	for _, sec := range state.FormState.Sections() {
		marker := ""
		switch sec.ID {
		case w.section:
			marker = ">"
		case state.FormState.Furthest():
			marker = "*"
		}
		_ = table.Append(marker, string(sec.ID), yesNo(sec.IsSaved), yesNo(sec.HasChanges),
			strings.Join(sec.Errors.Codes(), " "), strings.Join(sec.Warnings.Codes(), " "),
			yesNo(sec.AcceptErrorsAndWarnings))
	}
	_ = table.Render()
	w.printf("%s%d%% done, status %s.\n", buf.String(), state.Progress(), state.Status)
}

func (w *workstation) help() {
	w.printf(`Commands:
  show                     show the current section
  set <field> <value>      change a field; a unique field name suffix is enough, "-" clears
  fill <text>              let the assistant read values from a transcription
  save | next              save the section and continue
  accept                   accept the errors and warnings of the section
  goto <section>           open another section you already reached
  status                   list all sections
  leave                    stop entering this record
  finalize                 finish the entry from the last section
  quit                     close the prompt and keep the entry
`)
}

func (w *workstation) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// resolveField matches name against the section's fields: a full pointer, or
// a suffix that identifies exactly one field.
func resolveField(fields []string, name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "/") {
		for _, f := range fields {
			if f == name {
				return f, nil
			}
		}
		return "", fmt.Errorf("%s is not a field of this section", name)
	}
	var matches []string
	for _, f := range fields {
		if strings.HasSuffix(f, "/"+name) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s is not a field of this section", name)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// parseValue reads a count or a yes/no answer. "-" clears the field.
func parseValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return nil, fmt.Errorf("a value is required")
	case "-":
		return nil, nil
	case "yes", "y", "true":
		return true, nil
	case "no", "n", "false":
		return false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a whole number nor yes/no", raw)
	}
	if n < 0 {
		return nil, fmt.Errorf("counts cannot be negative")
	}
	return n, nil
}

func displayValue(v any) any {
	if v == nil {
		return "(empty)"
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func sortedKeys(values types.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
