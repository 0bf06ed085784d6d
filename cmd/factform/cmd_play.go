package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dlovans/factform/internal/playback"
)

var (
	playQueries []string
	playJSON    bool
)

var errPlayFailed = errors.New("expectations failed")

// playCmd replays interaction scripts
var playCmd = &cobra.Command{
	Use:   "play script.yaml [script.yaml...]",
	Short: "Replay interaction scripts against the page",
	Long: `Each script runs against a freshly mounted page: steps type, check,
choose, click, tab, continue, complete, reset, add and remove items, and
their expectations are checked after every step.

Example:
  factform play married.yaml -q facts./isMarried -q "collections./jobs.#"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

type playResult struct {
	*playback.Report
	Queries map[string]string `json:"queries,omitempty"`
}

func runPlay(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := false
	for _, file := range args {
		script, err := playback.LoadScript(file)
		if err != nil {
			return err
		}
		f, err := openForm()
		if err != nil {
			return err
		}
		report, err := playback.New(f, logger).Run(cmd.Context(), script)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if report.Name == "" {
			report.Name = file
		}
		failed = failed || !report.Passed()

		res := playResult{Report: report}
		if len(playQueries) > 0 {
			serialized, err := f.Serialize()
			if err != nil {
				return err
			}
			res.Queries = make(map[string]string, len(playQueries))
			for _, q := range playQueries {
				res.Queries[q] = playback.Query(serialized, q)
			}
		}

		if playJSON {
			if err := json.NewEncoder(out).Encode(res); err != nil {
				return err
			}
			continue
		}
		printReport(cmd, res)
	}

	if failed {
		return errPlayFailed
	}
	return nil
}

func printReport(cmd *cobra.Command, res playResult) {
	out := cmd.OutOrStdout()
	if res.Passed() {
		fmt.Fprintf(out, "✓ %s: %d steps\n", res.Name, res.Steps)
	} else {
		fmt.Fprintf(out, "✗ %s: %d failed expectations in %d steps\n", res.Name, len(res.Failures), res.Steps)
		for _, f := range res.Failures {
			fmt.Fprintf(out, "  step %d: %s\n", f.Step, f.Message)
		}
	}
	for _, q := range playQueries {
		fmt.Fprintf(out, "  %s = %s\n", q, res.Queries[q])
	}
}
