package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/lint"
)

var lintJSON bool

// errLintFailed makes the command exit non-zero after issues are printed.
var errLintFailed = errors.New("lint found errors")

// lintCmd checks page markup without mounting it
var lintCmd = &cobra.Command{
	Use:   "lint [page]",
	Short: "Check a form page for markup problems",
	Long: `Reports unusable paths, unknown input types and operators, conditions
that read facts bound later in the page and, when the fact dictionary can
be read, paths the dictionary does not define.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	path := cfg.Page
	if len(args) == 1 {
		path = args[0]
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	defer file.Close()

	opts := lint.Options{}
	for name := range cfg.Operators {
		opts.Operators = append(opts.Operators, name)
	}
	if dict, err := factgraph.LoadDictionary(cfg.Dictionary); err == nil {
		opts.Dictionary = dict
	} else {
		logger.Debug("Linting without a dictionary", zap.Error(err))
	}

	result, err := lint.Run(file, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if lintJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if len(result.Issues) == 0 {
		fmt.Fprintln(out, "✓ No issues found")
	} else {
		for _, issue := range result.Issues {
			icon := "⚠"
			if issue.Severity == "error" {
				icon = "✗"
			}
			location := ""
			if issue.Path != "" {
				location = fmt.Sprintf(" [path: %s]", issue.Path)
			}
			if issue.Rule != "" {
				location += fmt.Sprintf(" [rule: %s]", issue.Rule)
			}
			fmt.Fprintf(out, "%s %s%s: %s\n", icon, issue.Severity, location, issue.Message)
		}
	}

	if !result.Valid {
		return errLintFailed
	}
	return nil
}
