package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:          "agentea",
		Short:        "Agent service: calculator, data processing, planner and executor agents over HTTP",
		SilenceUsage: true,
	}

	root.AddCommand(serveCMD(), migrateCMD(), tokenCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
