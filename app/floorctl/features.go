package main

import (
	"os"
	"time"

	"smartBidFloor/business/floors"
	"smartBidFloor/internal/repository/management"

	"github.com/spf13/cobra"
)

func newFeaturesCmd() *cobra.Command {
	var (
		baseURL string
		appID   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Print the feature schema of an app",
		Long:  `Fetch the ETL config of an app from the management service and print the model feature schema derived from it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := management.NewManagementRepository(management.Config{BaseURL: baseURL, Timeout: timeout})
			cfg, err := repo.FetchETLConfig(cmd.Context(), appID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), floors.FeaturesFromETLConfig(cfg))
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", os.Getenv("MANAGEMENT_API_URL"), "management service base url")
	cmd.Flags().StringVar(&appID, "app", "", "application id")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}

type modelConfigReport struct {
	AppID      string   `json:"appId"`
	ModelID    string   `json:"modelId"`
	Found      bool     `json:"found"`
	MaxAdUnits int      `json:"maxAdUnits,omitempty"`
	Epsilon    *float64 `json:"epsilon,omitempty"`
}

func newModelConfigCmd() *cobra.Command {
	var (
		baseURL string
		appID   string
		modelID string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "model-config",
		Short: "Print the serving parameters of a model",
		Long:  `Fetch the model config of an app from the management service and print the max ad units and exploration rate it sets.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := management.NewManagementRepository(management.Config{BaseURL: baseURL, Timeout: timeout, CacheTTL: time.Minute})
			ctx := cmd.Context()

			fc, found, err := repo.GetFloorConfig(ctx, "", appID, modelID)
			if err != nil {
				return err
			}
			report := modelConfigReport{AppID: appID, ModelID: modelID, Found: found, MaxAdUnits: fc.MaxAdUnits}
			if found {
				eps, ok, err := repo.ModelEpsilon(ctx, appID, modelID)
				if err != nil {
					return err
				}
				if ok {
					report.Epsilon = &eps
				}
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", os.Getenv("MANAGEMENT_API_URL"), "management service base url")
	cmd.Flags().StringVar(&appID, "app", "", "application id")
	cmd.Flags().StringVar(&modelID, "model", floors.DefaultModelID, "model id")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}
