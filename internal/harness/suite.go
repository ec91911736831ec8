package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a run over several scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that could not load, could not
// run, or ran with failed expectations.
type ScenarioFailure struct {
	ScenarioPath string   `json:"scenario_path"`
	Name         string   `json:"name,omitempty"`
	Errors       []string `json:"errors"`
}

// OK reports whether every scenario passed.
func (r SuiteResult) OK() bool {
	return r.Failed == 0
}

// ExpandPaths turns files and directories into a sorted list of scenario
// files. Directories contribute their *.yaml and *.yml entries (not
// recursive).
func ExpandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path %q: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read scenario dir %q: %w", p, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunFiles loads and runs each scenario file in order.
// A file that fails to load or run counts as a failure; the suite continues.
func RunFiles(paths []string) SuiteResult {
	result := SuiteResult{}

	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: path,
				Errors:       []string{err.Error()},
			})
			continue
		}

		run, err := Run(scenario)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: path,
				Name:         scenario.Name,
				Errors:       []string{err.Error()},
			})
			continue
		}

		if !run.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: path,
				Name:         scenario.Name,
				Errors:       run.Errors,
			})
			continue
		}

		result.Passed++
	}

	return result
}
