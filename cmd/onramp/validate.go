package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onrampd/onramp/internal/compiler"
	"github.com/onrampd/onramp/internal/loader"
	"github.com/onrampd/onramp/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate and compile all definitions",
	Long: `Loads every process and task definition, resolves task inheritance and
compiles each process, reporting structural errors and unreachable steps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		definitionsDir, _ := cmd.Flags().GetString("definitions")
		return runValidate(definitionsDir)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(definitionsDir string) error {
	logger := logging.New(logging.ParseLevel("warn"))

	bundle, err := loader.New(definitionsDir, loader.WithLogger(logger)).Load()
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}
	if len(bundle.Processes) == 0 {
		return fmt.Errorf("no valid process definitions found in %s", definitionsDir)
	}

	failed := 0
	for i := range bundle.Processes {
		def := &bundle.Processes[i]
		compiled, warnings, err := compiler.Compile(def, bundle.Tasks)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", def.ID, err)
			continue
		}
		fmt.Printf("OK    %s (version %d, %d steps)\n", def.ID, def.Version, len(compiled.Steps))
		for _, w := range warnings {
			fmt.Printf("      warning: %s\n", w)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d process definitions failed to compile", failed, len(bundle.Processes))
	}
	return nil
}
