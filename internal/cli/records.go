package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/store"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage record schemas",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <file.cue>",
		Short: "Register or replace a CUE record schema",
		Long: `Compile a CUE file and register it under name.

Re-registering a name replaces the schema for future writes. Records
already stored are not revalidated.

Example:
  flatkv schema add profile ./profile.cue`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			source, err := os.ReadFile(args[1])
			if err != nil {
				return fail(f, ExitCommandError, CodeInvalidInput, "failed to read schema file", err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Records().RegisterSchema(ctx, args[0], string(source)); err != nil {
					return fail(f, ExitFailure, CodeRecordFailure, "failed to register schema", err)
				}
				return f.Status(fmt.Sprintf("registered schema %s", args[0]), map[string]string{"schema": args[0]})
			})
		},
	})
	return cmd
}

// RecordOptions holds flags for the record subcommands.
type RecordOptions struct {
	*RootOptions
	Identity string
	Index    int
}

// RecordResult is the JSON payload of record get.
type RecordResult struct {
	store.RecordRef
	Body ir.Value `json:"body"`
}

// NewRecordCommand creates the record command group.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Create and read schema-validated records",
		Long: `Create and read structured records validated by CUE schemas.

Records are addressed by identity, schema and index. Indexes start at 0;
a negative index counts from the end, so -1 is the latest record.`,
	}

	create := &cobra.Command{
		Use:   "create <schema> <json>",
		Short: "Append a record",
		Long: `Validate a JSON body against a schema and append it.

A fresh identity is generated unless --identity is given.

Example:
  flatkv record create profile '{"name":"ada","age":36}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			body, err := ir.UnmarshalValue([]byte(args[1]))
			if err != nil {
				return fail(f, ExitCommandError, CodeInvalidInput, "invalid JSON body", err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				ref, err := s.store.Records().Create(ctx, opts.Identity, args[0], body)
				if err != nil {
					return recordFailure(f, err)
				}
				return f.Status(fmt.Sprintf("created %s/%s[%d]", ref.Identity, ref.Schema, ref.Index), ref)
			})
		},
	}
	create.Flags().StringVar(&opts.Identity, "identity", "", "record identity (default: new UUIDv7)")

	get := &cobra.Command{
		Use:           "get <identity> <schema>",
		Short:         "Print a record body",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				body, err := s.store.Records().Read(ctx, args[0], args[1], opts.Index)
				if err != nil {
					return recordFailure(f, err)
				}
				if f.Format == "json" {
					ref := store.RecordRef{Identity: args[0], Schema: args[1], Index: opts.Index}
					return f.Success(RecordResult{RecordRef: ref, Body: body})
				}
				data, err := ir.MarshalCanonical(body)
				if err != nil {
					return fail(f, ExitFailure, CodeRecordFailure, "failed to render record", err)
				}
				_, err = fmt.Fprintln(f.Writer, string(data))
				return err
			})
		},
	}
	get.Flags().IntVar(&opts.Index, "index", -1, "record index (negative counts from the end)")

	update := &cobra.Command{
		Use:           "update <identity> <schema> <json>",
		Short:         "Replace a record body",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			body, err := ir.UnmarshalValue([]byte(args[2]))
			if err != nil {
				return fail(f, ExitCommandError, CodeInvalidInput, "invalid JSON body", err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Records().Update(ctx, args[0], args[1], opts.Index, body); err != nil {
					return recordFailure(f, err)
				}
				ref := store.RecordRef{Identity: args[0], Schema: args[1], Index: opts.Index}
				return f.Status(fmt.Sprintf("updated %s/%s[%d]", ref.Identity, ref.Schema, ref.Index), ref)
			})
		},
	}
	update.Flags().IntVar(&opts.Index, "index", -1, "record index (negative counts from the end)")

	count := &cobra.Command{
		Use:           "count <identity> <schema>",
		Short:         "Count records for an identity and schema",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				n, err := s.store.Records().Count(ctx, args[0], args[1])
				if err != nil {
					return recordFailure(f, err)
				}
				if f.Format == "json" {
					return f.Success(map[string]int{"count": n})
				}
				return f.Success(strconv.Itoa(n))
			})
		},
	}

	cmd.AddCommand(create, get, update, count)
	return cmd
}

// recordFailure maps record store errors onto exit codes.
func recordFailure(f *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, store.ErrSchemaViolation):
		return fail(f, ExitFailure, CodeRecordFailure, "record violates schema", err)
	case errors.Is(err, store.ErrSchemaNotFound):
		return fail(f, ExitFailure, CodeRecordFailure, "unknown schema", err)
	case errors.Is(err, store.ErrRecordNotFound):
		return fail(f, ExitFailure, CodeRecordFailure, "record not found", err)
	default:
		return fail(f, ExitCommandError, CodeStoreFailure, "record store failure", err)
	}
}
