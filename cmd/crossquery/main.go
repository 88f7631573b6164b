package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crossquery",
	Short: "Compile backend-agnostic CRUD queries to native form",
	Long: `crossquery compiles a backend-agnostic description of joins, filters,
ordering and pagination into either a MongoDB aggregation pipeline or
parameterized SQL, for inspection and debugging.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(compileCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
