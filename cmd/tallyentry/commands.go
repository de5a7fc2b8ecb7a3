package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tbxark/tallyentry/store"
)

var enterCmd = &cobra.Command{
	Use:   "enter [record-id]",
	Short: "Open an interactive data-entry session on a record",
	Long: `Claims the record and starts a data-entry prompt. A new entry is created on
first claim; an entry you left earlier resumes where you stopped.

Type "help" at the prompt for the list of commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *backend) error {
			ctx := cmd.Context()
			parser, assistant, err := b.helpers(ctx)
			if err != nil {
				return err
			}
			s, err := b.session(args[0], logger.With("record", args[0]))
			if err != nil {
				return err
			}
			w := newWorkstation(s, parser, cmd.InOrStdin(), cmd.OutOrStdout())
			if assistant != nil {
				w.assistant = assistant
				if w.recordSchema, err = b.spec.JSONSchema(); err != nil {
					return err
				}
			}
			return w.Run(ctx)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [record-id...]",
	Short: "Show the state of data entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *backend) error {
			return printEntries(cmd.Context(), cmd.OutOrStdout(), b.store, args)
		})
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of a polling station record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *backend) error {
			raw, err := b.spec.JSONSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
			return err
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [record-id]",
	Short: "Discard an in-progress data entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *backend) error {
			s, err := b.claimed(cmd.Context(), args[0], logger)
			if err != nil {
				return err
			}
			if err := s.Delete(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Entry %s deleted.\n", args[0])
			return err
		})
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize [record-id]",
	Short: "Finish a data entry that has no errors left",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *backend) error {
			s, err := b.claimed(cmd.Context(), args[0], logger)
			if err != nil {
				return err
			}
			if !s.State().FormState.ReachedTerminal() {
				return fmt.Errorf("entry %s has not reached %s yet", args[0], s.Schema().Terminal())
			}
			if err := s.Finalize(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Entry %s finalised.\n", args[0])
			return err
		})
	},
}

type entryReader interface {
	Entry(ctx context.Context, recordID string) (store.Entry, error)
}

func printEntries(ctx context.Context, out io.Writer, entries entryReader, recordIDs []string) error {
	table := tablewriter.NewTable(out)
	table.Header("Record", "Owner", "Status", "Progress", "Updated")
	for _, id := range recordIDs {
		entry, err := entries.Entry(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			_ = table.Append(id, "", "not started", "0%", "")
			continue
		}
		if err != nil {
			return err
		}
		_ = table.Append(id, entry.Owner, string(entry.Status),
			strconv.Itoa(entry.Progress)+"%", entry.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return table.Render()
}
