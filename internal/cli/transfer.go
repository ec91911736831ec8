package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flatkv/internal/codec"
	"github.com/roach88/flatkv/internal/ir"
)

// ImportFile is the YAML document read by the import command.
//
//	records:
//	  - id: name
//	    value: ada
//	  - id: prefs
//	    value: {theme: dark}
type ImportFile struct {
	Records []map[string]any `yaml:"records"`
}

// LoadImportFile reads an import document with strict field checking.
func LoadImportFile(path string) ([]ir.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var doc ImportFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	recs := make([]ir.Record, len(doc.Records))
	for i, m := range doc.Records {
		recs[i] = ir.Record(m)
	}
	return recs, nil
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	JSON bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Append a batch of records from YAML",
		Long: `Append every record in a YAML file.

Without --json every value must be a string and the batch is all or
nothing: one bad record rejects the whole file. With --json each value is
serialized to JSON and stored on its own; bad records are skipped.

Exit codes:
  0 - Every record was stored
  1 - One or more records were not stored
  2 - Command error (unreadable file, database not found, etc.)

Examples:
  flatkv import seed.yaml
  flatkv import prefs.yaml --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "serialize each value to JSON")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	recs, err := LoadImportFile(path)
	if err != nil {
		return fail(f, ExitCommandError, CodeInvalidInput, "failed to load import file", err)
	}

	return withSession(opts.RootOptions, cmd, func(ctx context.Context, s *session) error {
		var (
			result codec.BatchResult
			err    error
		)
		if opts.JSON {
			result, err = s.codec.StoreAllAsJSON(ctx, recs)
		} else {
			result, err = s.codec.StoreAll(ctx, recs)
		}
		if err != nil {
			return storeFailure(f, path, err)
		}
		if !result.OK() {
			if f.Format == "json" {
				_ = f.Success(result)
			}
			return NewExitError(ExitFailure,
				fmt.Sprintf("stored %d of %d records (%d failed)", result.Stored, result.Total, result.Failed))
		}
		return f.Status(fmt.Sprintf("stored %d records", result.Stored), result)
	})
}

// ExportResult is the JSON payload of the export command.
type ExportResult struct {
	Namespace string `json:"namespace"`
	Flat      string `json:"flat"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the raw flat string",
		Long: `Print the namespace's flat string exactly as stored.

Export reads the medium directly, so it works on a disabled namespace.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				flat, err := s.flat.Read(ctx)
				if err != nil {
					return fail(f, ExitCommandError, CodeStoreFailure, "failed to read flat store", err)
				}
				if f.Format == "json" {
					return f.Success(ExportResult{Namespace: s.flat.Namespace(), Flat: flat})
				}
				_, err = fmt.Fprintln(f.Writer, flat)
				return err
			})
		},
	}
}
