package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/query"
)

// NewAllCommand creates the all command.
func NewAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List every entry in the namespace",
		Long: `List every entry in the namespace, unraveled with --unravel.

Examples:
  flatkv all
  flatkv all --unravel none --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				entries, err := s.entries(ctx)
				if err != nil {
					return err
				}
				return f.Entries(entries)
			})
		},
	}
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	All bool
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <query>",
		Short: "Get the entry matching a query",
		Long: `Get the first entry matching a query, or every match with --all.

A query is an exact id, a position written #N (negative counts from the
end), or a regular expression written /expr/.

Exit codes:
  0 - At least one entry matched
  1 - Nothing matched
  2 - Command error (invalid query, database not found, etc.)

Examples:
  flatkv get name
  flatkv get '#-1'
  flatkv get '/^user\./' --all`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "return every match")

	return cmd
}

func runGet(opts *GetOptions, raw string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	q, err := query.Parse(raw)
	if err != nil {
		return fail(f, ExitCommandError, CodeInvalidQuery, "invalid query", err)
	}

	return withSession(opts.RootOptions, cmd, func(ctx context.Context, s *session) error {
		entries, err := s.entries(ctx)
		if err != nil {
			return err
		}

		if opts.All {
			found := query.Find(entries, q)
			if len(found) == 0 {
				return fail(f, ExitFailure, CodeNoMatch, fmt.Sprintf("no entry matches %s", q), nil)
			}
			return f.Entries(found)
		}

		e, ok := query.First(entries, q)
		if !ok {
			return fail(f, ExitFailure, CodeNoMatch, fmt.Sprintf("no entry matches %s", q), nil)
		}
		return f.Entries([]ir.Entry{e})
	})
}

// HasResult is the JSON payload of the has command.
type HasResult struct {
	Query string `json:"query"`
	Has   bool   `json:"has"`
}

func (r HasResult) String() string {
	return strconv.FormatBool(r.Has)
}

// NewHasCommand creates the has command.
func NewHasCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "has <query>",
		Short: "Report whether a query matches a truthy entry",
		Long: `Report whether the first entry matching a query holds a truthy value.

An empty scalar is falsy, as are the JSON values null, false, 0 and "".
With unraveling on, the scalars 0 and false unravel to JSON and are falsy
too. Containers, arrays and objects are always truthy.

Exit codes:
  0 - The entry exists and is truthy
  1 - No entry, or the entry is falsy
  2 - Command error

Examples:
  flatkv has enabled
  flatkv has '/^feature\./'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			q, err := query.Parse(args[0])
			if err != nil {
				return fail(f, ExitCommandError, CodeInvalidQuery, "invalid query", err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				entries, err := s.entries(ctx)
				if err != nil {
					return err
				}
				has := query.Has(entries, q)
				if err := f.Success(HasResult{Query: q.String(), Has: has}); err != nil {
					return err
				}
				if !has {
					return NewExitError(ExitFailure, fmt.Sprintf("has %s: false", q))
				}
				return nil
			})
		},
	}
}
