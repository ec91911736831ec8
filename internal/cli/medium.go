package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/store"
)

// UsageResult is the JSON payload of the usage command.
type UsageResult struct {
	store.Usage
	Remaining int `json:"remaining"` // -1 = unlimited
}

// NewUsageCommand creates the usage command.
func NewUsageCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show namespace size and quota",
		Long: `Show the namespace's size in bytes, its quota and whether it is enabled.

Examples:
  flatkv usage
  flatkv --quota 4096 usage`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				u, err := s.flat.Usage(ctx)
				if err != nil {
					return fail(f, ExitCommandError, CodeStoreFailure, "failed to read usage", err)
				}
				if f.Format == "json" {
					return f.Success(UsageResult{Usage: u, Remaining: u.Remaining()})
				}
				return writeUsage(f, u)
			})
		},
	}
}

func writeUsage(f *OutputFormatter, u store.Usage) error {
	quota := "unlimited"
	if !u.Unlimited() {
		quota = fmt.Sprintf("%d bytes (%d remaining)", u.Quota, u.Remaining())
	}
	state := "enabled"
	if !u.Enabled {
		state = "disabled"
	}
	_, err := fmt.Fprintf(f.Writer, "namespace: %s\nbytes:     %d\nquota:     %s\nstate:     %s\nrevision:  %d\n",
		u.Namespace, u.Bytes, quota, state, u.Revision)
	return err
}

// NewNamespacesCommand creates the namespaces command.
func NewNamespacesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "namespaces",
		Short:         "List namespaces that hold a flat string",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				names, err := s.store.Namespaces(ctx)
				if err != nil {
					return fail(f, ExitCommandError, CodeStoreFailure, "failed to list namespaces", err)
				}
				if f.Format == "json" {
					return f.Success(names)
				}
				for _, name := range names {
					fmt.Fprintln(f.Writer, name)
				}
				return nil
			})
		},
	}
}

// NewEnableCommand creates the enable command.
func NewEnableCommand(rootOpts *RootOptions) *cobra.Command {
	return newToggleCommand(rootOpts, "enable", true)
}

// NewDisableCommand creates the disable command.
func NewDisableCommand(rootOpts *RootOptions) *cobra.Command {
	return newToggleCommand(rootOpts, "disable", false)
}

func newToggleCommand(rootOpts *RootOptions, name string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:           name,
		Short:         fmt.Sprintf("Mark the namespace %sd", name),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if err := s.flat.SetEnabled(ctx, enabled); err != nil {
					return fail(f, ExitCommandError, CodeStoreFailure, fmt.Sprintf("failed to %s namespace", name), err)
				}
				return f.Status(fmt.Sprintf("namespace %s %sd", s.flat.Namespace(), name),
					map[string]any{"namespace": s.flat.Namespace(), "enabled": enabled})
			})
		},
	}
}
