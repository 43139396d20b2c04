package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "onramp",
	Short: "onramp is a declarative onboarding workflow engine",
	Long: `onramp compiles declarative process and task definitions into
executable onboarding flows and drives per-subject sessions through them.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("definitions", "./definitions", "Directory containing the processes/ and tasks/ namespaces")
}
