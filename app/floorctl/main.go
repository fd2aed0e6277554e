package main

import (
	"encoding/json"
	"io"
	"os"

	"smartBidFloor/pkg/logger"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "floorctl",
		Short: "Bid floor model tooling",
		Long:  `floorctl creates and inspects the artifacts served by the bid floor engine and runs the engine offline.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			env := os.Getenv("APP_ENV")
			if env == "" {
				env = "development"
			}
			logger.Init(env)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newEmptyModelCmd(),
		newFitReplacerCmd(),
		newFeaturesCmd(),
		newModelConfigCmd(),
		newDecideCmd(),
		newHashPasswordCmd(),
	)
	return rootCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
	_ = logger.Sync()
}
