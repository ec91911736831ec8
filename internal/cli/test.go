package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against an in-memory flat store.

Each argument is a scenario file or a directory of *.yaml and *.yml
files. Scenarios never touch --db.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  flatkv test ./scenarios
  flatkv test ./scenarios --filter "quota-*"
  flatkv test basic.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	files, err := harness.ExpandPaths(paths)
	if err != nil {
		return fail(f, ExitCommandError, CodeInvalidInput, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return fail(f, ExitCommandError, CodeInvalidInput, "invalid filter pattern", err)
	}

	if len(files) == 0 {
		if f.Format == "json" {
			return f.Success(harness.SuiteResult{})
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	opts.logger(cmd).Debug("running scenarios", "count", len(files))
	result := harness.RunFiles(files)

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		writeSuiteText(f, files, result)
	}

	if !result.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.TotalScenarios))
	}
	return nil
}

// filterScenarios keeps files whose base name, without extension, matches
// the glob pattern. An empty pattern keeps everything.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var kept []string
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if matched {
			kept = append(kept, file)
		}
	}
	return kept, nil
}

func writeSuiteText(f *OutputFormatter, files []string, result harness.SuiteResult) {
	pass := f.color(color.FgGreen)
	failc := f.color(color.FgRed)

	failed := make(map[string]harness.ScenarioFailure, len(result.Failures))
	for _, failure := range result.Failures {
		failed[failure.ScenarioPath] = failure
	}

	for _, file := range files {
		failure, ok := failed[file]
		if !ok {
			fmt.Fprintf(f.Writer, "%s %s\n", pass.Sprint("✓"), filepath.Base(file))
			continue
		}
		fmt.Fprintf(f.Writer, "%s %s\n", failc.Sprint("✗"), filepath.Base(file))
		for _, msg := range failure.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", msg)
		}
	}

	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Results: %d passed, %d failed, %d total\n",
		result.Passed, result.Failed, result.TotalScenarios)
}
