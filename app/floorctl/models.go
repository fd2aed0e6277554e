package main

import (
	"fmt"

	"smartBidFloor/business/floors"
	"smartBidFloor/internal/repository/artifact"
	"smartBidFloor/pkg/logger"

	"github.com/spf13/cobra"
)

func newEmptyModelCmd() *cobra.Command {
	var (
		dir     string
		key     floors.ModelKey
		epsilon float64
	)

	cmd := &cobra.Command{
		Use:   "empty-model",
		Short: "Publish a cold-start model",
		Long: `Write a cold-start artifact that serves uniformly random floor combinations.

Examples:
  floorctl empty-model --customer acme --app 1234 --epsilon 0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if epsilon < 0 || epsilon > 1 {
				return fmt.Errorf("%w: %v", floors.ErrInvalidEpsilon, epsilon)
			}

			doc, err := artifact.Encode(floors.EmptyArtifact(epsilon))
			if err != nil {
				return err
			}
			if err := artifact.NewFileStore(dir).Save(cmd.Context(), key, doc); err != nil {
				return err
			}

			logger.Info("empty model saved", "model_key", key.String(), "dir", dir)
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./models", "artifact directory")
	cmd.Flags().StringVar(&key.CustomerID, "customer", "default", "customer id")
	cmd.Flags().StringVar(&key.AppID, "app", "", "application id")
	cmd.Flags().StringVar(&key.ModelID, "model", floors.DefaultModelID, "model id")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0.1, "exploration rate")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}
