package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/ir"
)

// StoreResult is the JSON payload of the single-record write commands.
type StoreResult struct {
	ID     string `json:"id"`
	Stored bool   `json:"stored"`
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <value>",
		Short: "Append a scalar entry",
		Long: `Append id=value to the namespace.

Ids and values are written verbatim. A ';' in either, or a '=' in the id,
is not escaped and will not read back as one entry.

Examples:
  flatkv set name ada
  flatkv --namespace prefs set theme dark`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(rootOpts, cmd, args[0], func(ctx context.Context, s *session) (bool, error) {
				return s.codec.Store(ctx, ir.R(args[0], args[1]))
			})
		},
	}
}

// NewSetJSONCommand creates the set-json command.
func NewSetJSONCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-json <id> <json>",
		Short: "Append an entry holding JSON",
		Long: `Parse a JSON document and append it in canonical form.

Examples:
  flatkv set-json prefs '{"theme":"dark","size":12}'
  flatkv set-json tags '["a","b"]'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := ir.UnmarshalValue([]byte(args[1]))
			if err != nil {
				return fail(rootOpts.formatter(cmd), ExitCommandError, CodeInvalidInput, "invalid JSON value", err)
			}
			return runStore(rootOpts, cmd, args[0], func(ctx context.Context, s *session) (bool, error) {
				return s.codec.StoreAsJSON(ctx, ir.R(args[0], v))
			})
		},
	}
}

// NewSetContainerCommand creates the set-container command.
func NewSetContainerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-container <id> <key=value>...",
		Short: "Append a k=v&k=v container entry",
		Long: `Pack key=value pairs into one container entry.

Examples:
  flatkv set-container point x=1 y=2`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := parsePairs(args[1:])
			if err != nil {
				return fail(rootOpts.formatter(cmd), ExitCommandError, CodeInvalidInput, "invalid container pair", err)
			}
			return runStore(rootOpts, cmd, args[0], func(ctx context.Context, s *session) (bool, error) {
				return s.codec.StoreContainer(ctx, ir.R(args[0], subs))
			})
		},
	}
}

// parsePairs splits key=value arguments on their first '='.
func parsePairs(args []string) ([]ir.Record, error) {
	subs := make([]ir.Record, 0, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%q: want key=value", arg)
		}
		subs = append(subs, ir.R(k, v))
	}
	return subs, nil
}

// runStore executes one codec store call and reports its outcome.
func runStore(opts *RootOptions, cmd *cobra.Command, id string, store func(ctx context.Context, s *session) (bool, error)) error {
	f := opts.formatter(cmd)
	return withSession(opts, cmd, func(ctx context.Context, s *session) error {
		stored, err := store(ctx, s)
		if err != nil {
			return storeFailure(f, id, err)
		}
		if !stored {
			return fail(f, ExitFailure, CodeStoreFailure, fmt.Sprintf("namespace %q is disabled", s.flat.Namespace()), nil)
		}
		return f.Status(fmt.Sprintf("stored %s", id), StoreResult{ID: id, Stored: true})
	})
}
