package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartBidFloor/business/floors"
	"smartBidFloor/domain"
	"smartBidFloor/internal/repository/artifact"

	"github.com/spf13/cobra"
)

func newDecideCmd() *cobra.Command {
	var (
		artifactPath string
		requestPath  string
		seed         uint64
		epsilon      float64
		at           string
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Run the engine offline",
		Long: `Decide floors for a request file with a fixed seed. The same seed, artifact
and request always print the same allocation. A request with "users" is
decided as a batch.

Examples:
  floorctl decide --artifact models/acme/1234/default_bid_floor.json --request req.json --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ab, err := os.ReadFile(artifactPath)
			if err != nil {
				return err
			}
			a, err := artifact.Decode(ab, filepath.Dir(artifactPath))
			if err != nil {
				return err
			}

			rb, err := os.ReadFile(requestPath)
			if err != nil {
				return err
			}
			var batch domain.BatchAllocationRequest
			if err := json.Unmarshal(rb, &batch); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			if batch.Users == nil {
				var single domain.AllocationRequest
				if err := json.Unmarshal(rb, &single); err != nil {
					return fmt.Errorf("decode request: %w", err)
				}
				batch.Users = []domain.AllocationRequest{single}
			}

			var opts []floors.Option
			if at != "" {
				now, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				opts = append(opts, floors.WithClock(func() time.Time { return now }))
			}

			streams := floors.NewSeedSequence(seed).Spawn(1)[0]
			p, err := floors.NewPredictor(a, epsilon, streams, opts...)
			if err != nil {
				return err
			}

			items := make([]floors.BatchItem, len(batch.Users))
			for i, u := range batch.Users {
				card := floors.CardinalityUnspecified
				if u.MaxAdUnits != nil {
					card = floors.Cardinality(*u.MaxAdUnits)
				}
				items[i] = floors.BatchItem{Context: u.Context, Floors: u.AdUnits, Cardinality: card}
			}
			decisions, err := p.DecideBatch(cmd.Context(), items, 1)
			if err != nil {
				return err
			}

			out := make([]domain.Allocation, len(decisions))
			for i, d := range decisions {
				u := batch.Users[i]
				out[i] = domain.Allocation{
					FloorResponse: d.Response,
					UserID:        u.UserID,
					ModelID:       u.ModelID,
					Reference:     u.Reference,
				}
			}
			if len(out) == 1 {
				return writeJSON(cmd.OutOrStdout(), out[0])
			}
			return writeJSON(cmd.OutOrStdout(), domain.BatchAllocationResponse{Allocations: out})
		},
	}

	cmd.Flags().StringVar(&artifactPath, "artifact", "", "artifact JSON file")
	cmd.Flags().StringVar(&requestPath, "request", "", "allocation request JSON file")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "base seed of the random streams")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0.1, "exploration rate when the artifact has none")
	cmd.Flags().StringVar(&at, "at", "", "decision time (RFC3339), defaults to now")
	_ = cmd.MarkFlagRequired("artifact")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}
