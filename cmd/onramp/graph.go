package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onrampd/onramp/internal/compiler"
	"github.com/onrampd/onramp/internal/loader"
	"github.com/onrampd/onramp/internal/logging"
	"github.com/onrampd/onramp/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <process-id>",
	Short: "Render a process as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		definitionsDir, _ := cmd.Flags().GetString("definitions")
		return runGraph(definitionsDir, args[0])
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph(definitionsDir, processID string) error {
	logger := logging.New(logging.ParseLevel("warn"))

	bundle, err := loader.New(definitionsDir, loader.WithLogger(logger)).Load()
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}

	for i := range bundle.Processes {
		def := &bundle.Processes[i]
		if def.ID != processID {
			continue
		}
		compiled, _, err := compiler.Compile(def, bundle.Tasks)
		if err != nil {
			return fmt.Errorf("failed to compile process %s: %w", processID, err)
		}
		fmt.Print(graph.Mermaid(compiled, nil))
		return nil
	}
	return fmt.Errorf("process %s not found", processID)
}
