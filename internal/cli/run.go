package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/harness"
	"github.com/roach88/rewind/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)
	Journal string // optional journal database recording each trace
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name      string   `json:"name"`
	Pass      bool     `json:"pass"`
	Messages  int      `json:"messages"`
	SessionID string   `json:"session_id,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>...",
		Short: "Run store scenarios",
		Long: `Run scenario files against fresh stores.

Each argument is a scenario file or a directory searched recursively for
.yaml and .yml files. A scenario passes when every dispatch matches its
expect_error, every assertion holds, and, if golden/<name>.golden exists
next to the scenario, the devtools trace matches it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreadable journal, etc.)

Examples:
  rewind run ./scenarios
  rewind run ./scenarios --filter "todo*"
  rewind run ./scenarios --update
  rewind run ./scenarios/counter.yaml --journal ./rewind.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record each trace as a session in this SQLite journal")

	return cmd
}

func runScenarios(ctx context.Context, opts *RunOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(cmd, opts.RootOptions)

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to find scenarios in %s", p), err)
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		if formatter.JSON() {
			return formatter.Result(RunResult{Scenarios: []ScenarioResult{}}, nil)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	var j *journal.Journal
	if opts.Journal != "" {
		var err error
		j, err = journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
	}

	result := RunResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		formatter.VerboseLog("running %s", file)
		sr := runScenarioFile(ctx, file, opts, j)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if !formatter.JSON() {
			printScenarioResult(formatter, sr)
		}
	}

	return outputRunResult(formatter, result)
}

// findScenarioFiles returns path itself if it is a file, or every YAML
// scenario under it if it is a directory. Golden directories are skipped.
func findScenarioFiles(path string, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenarioFile executes one scenario file and checks its golden trace.
func runScenarioFile(ctx context.Context, file string, opts *RunOptions, j *journal.Journal) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return failed(name, "load error: %v", err)
	}
	name = scenario.Name

	var runOpts []harness.Option
	var sessionID string
	if j != nil {
		session, err := j.NewSession(ctx, scenario.Name)
		if err != nil {
			return failed(name, "journal: %v", err)
		}
		sessionID = session.ID
		runOpts = append(runOpts, harness.WithTranscript(session))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return failed(name, "execution error: %v", err)
	}

	sr := ScenarioResult{
		Name:      name,
		Pass:      result.Pass,
		Messages:  len(result.Trace),
		SessionID: sessionID,
		Errors:    result.Errors,
	}

	trace, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return failed(name, "marshal trace: %v", err)
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(goldenPath, trace); err != nil {
			return failed(name, "golden update error: %v", err)
		}
		return sr
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		return failed(name, "golden comparison error: %v", err)
	}
	if !bytes.Equal(golden, trace) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
	}
	return sr
}

func failed(name, format string, args ...any) ScenarioResult {
	return ScenarioResult{
		Name:   name,
		Pass:   false,
		Errors: []string{fmt.Sprintf(format, args...)},
	}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printScenarioResult(f *OutputFormatter, sr ScenarioResult) {
	if sr.Pass {
		green.Fprintf(f.Writer, "✓ %s", sr.Name)
		faint.Fprintf(f.Writer, " (%d messages)\n", sr.Messages)
		return
	}
	red.Fprintf(f.Writer, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(f.Writer, "  %s\n", e)
	}
}

func outputRunResult(f *OutputFormatter, result RunResult) error {
	var cliErr *CLIError
	if result.Failed > 0 {
		cliErr = &CLIError{
			Code:    CodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if f.JSON() {
		if err := f.Result(result, cliErr); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer)
		fmt.Fprintf(f.Writer, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if cliErr == nil {
			green.Fprintln(f.Writer, "✓ All scenarios passed")
		}
	}

	if cliErr != nil {
		return NewExitError(ExitFailure, cliErr.Message)
	}
	return nil
}
