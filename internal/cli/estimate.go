package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"alertx/internal/app"
	"alertx/internal/app/domains/entity/etprimitive"
)

type estimateOptions struct {
	from, to []float64
}

func newEstimateCmd() *cobra.Command {
	opts := &estimateOptions{}
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print distance and clamped ETA between two points",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, opts)
		},
	}
	cmd.Flags().Float64SliceVar(&opts.from, "from", nil, "起点 lat,lng")
	cmd.Flags().Float64SliceVar(&opts.to, "to", nil, "终点 lat,lng")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runEstimate(cmd *cobra.Command, opts *estimateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := point(opts.from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	b, err := point(opts.to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	est, err := app.NewEstimator(cfg)
	if err != nil {
		return err
	}
	return printJSON(cmd, est.Estimate(a, b))
}

func point(v []float64) (etprimitive.Coordinates, error) {
	if len(v) != 2 {
		return etprimitive.Coordinates{}, fmt.Errorf("expected lat,lng, got %d values", len(v))
	}
	c := etprimitive.Coordinates{Latitude: v[0], Longitude: v[1]}
	return c, c.Validate()
}
