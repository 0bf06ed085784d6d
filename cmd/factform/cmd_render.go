package main

import (
	"os"

	"github.com/spf13/cobra"
)

var factsFile string

// renderCmd prints the mounted page
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Mount the page and print the resulting HTML",
	Long: `Mounts the configured page over an empty fact graph, or over a
serialized graph given with --facts, and prints the page as a browser
would show it: stored answers filled in, hidden elements marked and
collection items expanded.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	f, err := openForm()
	if err != nil {
		return err
	}
	if factsFile != "" {
		data, err := os.ReadFile(factsFile)
		if err != nil {
			return err
		}
		if err := f.Load(string(data)); err != nil {
			return err
		}
	}
	return f.Document().Render(cmd.OutOrStdout())
}
