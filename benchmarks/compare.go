package benchmarks

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/spf13/cobra"
	"github.com/zeu5/edgeracer/experiment"
)

var discounts []float64

// CompareDiscounts trains one experiment per discount factor on the same course
func CompareDiscounts(ctx context.Context, logger log.Logger) error {
	course, err := loadCourse()
	if err != nil {
		return err
	}
	c, monitor, err := newComparison(logger)
	if err != nil {
		return err
	}
	for _, d := range discounts {
		cfg := trainingConfig()
		cfg.Discount = d
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.AddExperiment(experiment.NewExperiment(fmt.Sprintf("discount-%.2f", d), cfg, course))
	}
	return runComparison(ctx, logger, c, monitor)
}

func CompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare discount factors on one course",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()
			return CompareDiscounts(ctx, newLogger())
		},
	}
	addTrainingFlags(cmd)
	cmd.Flags().Float64SliceVar(&discounts, "discounts", []float64{0.5, 0.7, 0.9, 0.99}, "Discount factors to compare")
	return cmd
}
