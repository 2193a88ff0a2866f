package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/guard"
	"github.com/roach88/rewind/internal/harness"
)

// FileValidation is the validation outcome for one scenario file.
type FileValidation struct {
	File   string   `json:"file"`
	Name   string   `json:"name,omitempty"`
	Valid  bool     `json:"valid"`
	Guards []string `json:"guards,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files without building a store.

Checks the YAML structure, step and assertion shapes, and compiles the
CUE guard document if the scenario has one. Faster than run for
development feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, "")
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to find scenarios in %s", p), err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("validating %s", file)
		fv := validateFile(file)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.JSON() {
		var cliErr *CLIError
		if !result.Valid {
			cliErr = &CLIError{Code: CodeInvalid, Message: "validation failed"}
		}
		if err := formatter.Result(result, cliErr); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				green.Fprintf(formatter.Writer, "✓ %s", fv.File)
				if len(fv.Guards) > 0 {
					faint.Fprintf(formatter.Writer, " (guards: %v)", fv.Guards)
				}
				fmt.Fprintln(formatter.Writer)
				continue
			}
			red.Fprintf(formatter.Writer, "✗ %s\n", fv.File)
			for _, e := range fv.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(file string) FileValidation {
	fv := FileValidation{File: file, Valid: true}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		fv.Valid = false
		fv.Errors = []string{err.Error()}
		return fv
	}
	fv.Name = scenario.Name

	if scenario.Guards == "" {
		return fv
	}
	g, err := guard.Compile(scenario.Guards, scenario.Name+".guards.cue")
	if err != nil {
		fv.Valid = false
		fv.Errors = []string{fmt.Sprintf("guards: %v", err)}
		return fv
	}
	fv.Guards = g.Labels()
	return fv
}
