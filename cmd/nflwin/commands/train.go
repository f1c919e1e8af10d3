package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/spf13/cobra"
)

type trainConfig struct {
	Seasons     []int
	SeasonTypes []string
	Bootstrap   int
	GridSearch  bool
	Seed        int64
	FromCSV     string
}

func installTrainCmd(app *App) {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a win probability model",
		Long: `Train a win probability model on historical plays and save it as a model artifact.

Plays come from the plays database for the selected seasons, or from a CSV
file when --from-csv is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("Running train command")
			return app.trainRun()
		},
	}

	trainCmd.Flags().IntSliceVar(&app.config.Train.Seasons, "season", []int{2009, 2010, 2011, 2012, 2013, 2014}, "seasons to train on")
	trainCmd.Flags().StringSliceVar(&app.config.Train.SeasonTypes, "season-type", []string{"Regular", "Postseason"}, "season phases to train on")
	trainCmd.Flags().IntVar(&app.config.Train.Bootstrap, "bootstrap", 0, "additionally fit this many bootstrap resamples (at least 2) for uncertainty estimates")
	trainCmd.Flags().BoolVar(&app.config.Train.GridSearch, "grid-search", false, "select the regularization strength by cross-validated Brier score")
	trainCmd.Flags().Int64Var(&app.config.Train.Seed, "seed", 0, "fix the random seed for bootstrap resampling")
	trainCmd.Flags().StringVar(&app.config.Train.FromCSV, "from-csv", "", "train on plays from a CSV file instead of the database")

	if err := trainCmd.MarkFlagFilename("from-csv", "csv"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark from-csv flag as filename: %v", err))
	}

	app.cmd.AddCommand(trainCmd)
}

func (a App) trainRun() error {
	ctx := context.Background()
	conf := a.config.Train

	cols, err := a.columns()
	if err != nil {
		return err
	}

	opts := []wp.Option{wp.WithColumns(cols)}
	if conf.Bootstrap > 0 {
		opts = append(opts, wp.WithBootstrap(conf.Bootstrap))
	}
	if conf.GridSearch {
		opts = append(opts, wp.WithGridSearch())
	}
	if conf.Seed != 0 {
		opts = append(opts, wp.WithSeed(conf.Seed))
	}

	ds, err := a.loadDataset(ctx, conf.FromCSV, cols, conf.Seasons, conf.SeasonTypes)
	if err != nil {
		return err
	}

	seasons, seasonTypes := conf.Seasons, conf.SeasonTypes
	if conf.FromCSV != "" {
		// CSV sources carry no season metadata.
		seasons, seasonTypes = nil, nil
	}

	m := wp.New(opts...)
	slog.Info("Training model", "plays", ds.NumRows(), "bootstrap", conf.Bootstrap, "grid_search", conf.GridSearch)
	if err := m.Train(ds, seasons, seasonTypes); err != nil {
		return err
	}

	if err := m.Save(a.config.ModelPath); err != nil {
		return err
	}
	fmt.Printf("Trained model %s on %d plays, saved to %s\n", m.ID(), ds.NumRows(), a.config.ModelPath)
	return nil
}
