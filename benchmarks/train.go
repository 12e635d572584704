package benchmarks

import (
	"context"

	"github.com/go-kit/log"
	"github.com/spf13/cobra"
	"github.com/zeu5/edgeracer/experiment"
)

// Train runs one DQN experiment on the selected course
func Train(ctx context.Context, logger log.Logger) error {
	course, err := loadCourse()
	if err != nil {
		return err
	}
	cfg := trainingConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, monitor, err := newComparison(logger)
	if err != nil {
		return err
	}
	c.AddExperiment(experiment.NewExperiment("DQN", cfg, course))
	return runComparison(ctx, logger, c, monitor)
}

func TrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a DQN agent on one course",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()
			return Train(ctx, newLogger())
		},
	}
	addTrainingFlags(cmd)
	return cmd
}
