package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/codec"
	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/store"
)

// DefaultDatabase is the SQLite file used when --db is not given.
const DefaultDatabase = "flatkv.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Database  string
	Namespace string
	Quota     int    // bytes; negative leaves the stored quota unchanged
	Unravel   string // codec.Mode name

	// Set by PersistentPreRunE.
	Mode   codec.Mode
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the flatkv CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "flatkv",
		Short:   "flatkv - flat key=value store",
		Version: fmt.Sprintf("%s (flat format %s)", ir.ToolVersion, ir.FormatVersion),
		Long: `A flat ';'-separated key=value store with JSON and container unraveling.

Entries live in one string per namespace inside a SQLite database. Values
that hold JSON or k=v&k=v containers are unraveled on read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			mode, err := codec.ParseMode(opts.Unravel)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --unravel", err)
			}
			opts.Mode = mode
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	flags.StringVarP(&opts.Namespace, "namespace", "n", store.DefaultNamespace, "flat string namespace")
	flags.IntVar(&opts.Quota, "quota", -1, "set the namespace byte quota (0 removes it)")
	flags.StringVar(&opts.Unravel, "unravel", string(codec.ModeAll), "unravel mode (all|json-only|container-only|none)")

	// Add subcommands
	cmd.AddCommand(NewAllCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewHasCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewSetJSONCommand(opts))
	cmd.AddCommand(NewSetContainerCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewUsageCommand(opts))
	cmd.AddCommand(NewNamespacesCommand(opts))
	cmd.AddCommand(NewEnableCommand(opts))
	cmd.AddCommand(NewDisableCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger builds a tint handler over w. Colour is used only when w is
// a terminal.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	noColor := isPlain(w)
	if f, ok := w.(*os.File); ok {
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}

// isPlain reports whether w should receive output without ANSI colour.
func isPlain(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// formatter builds the OutputFormatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		NoColor:   isPlain(cmd.OutOrStdout()),
	}
}

// logger returns the configured logger, or one over cmd's stderr when a
// subcommand runs without the root pre-run.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if o.Logger == nil {
		o.Logger = newLogger(cmd.ErrOrStderr(), o.Verbose)
	}
	return o.Logger
}
