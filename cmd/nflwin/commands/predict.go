package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/spf13/cobra"
)

type predictConfig struct {
	FromCSV   string
	Output    string
	WithError bool

	Play plays.Play
}

func installPredictCmd(app *App) {
	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate win probabilities for plays",
		Long: `Estimate the probability that the offense wins the game.

With --from-csv, every play in the file is scored and the input is written
back out with a win_probability column appended. Without it, a single play
is described through flags and its probability printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("Running predict command")
			if app.config.Predict.FromCSV != "" {
				return app.predictCSVRun()
			}
			return app.predictPlayRun()
		},
	}

	predictCmd.Flags().StringVar(&app.config.Predict.FromCSV, "from-csv", "", "score every play in this CSV file")
	predictCmd.Flags().StringVarP(&app.config.Predict.Output, "output", "o", "", "write CSV results to this path instead of stdout")
	predictCmd.Flags().BoolVar(&app.config.Predict.WithError, "with-error", false, "also report bootstrap standard errors")

	// Single play flags
	p := &app.config.Predict.Play
	predictCmd.Flags().IntVar(&p.Quarter, "quarter", 1, "quarter, 5 and up for overtime")
	predictCmd.Flags().Float64Var(&p.SecondsElapsed, "seconds-elapsed", 0, "seconds elapsed in the quarter")
	predictCmd.Flags().IntVar(&p.Down, "down", 1, "down, 0 for plays without a down")
	predictCmd.Flags().IntVar(&p.YardsToGo, "yards-to-go", 10, "yards to go for a first down")
	predictCmd.Flags().Float64Var(&p.Yardline, "yardline", 25, "yards from the offense's own end zone")
	predictCmd.Flags().StringVar(&p.OffenseTeam, "offense-team", "", "team with possession")
	predictCmd.Flags().StringVar(&p.HomeTeam, "home-team", "", "home team")
	predictCmd.Flags().IntVar(&p.HomeScore, "home-score", 0, "current home team score")
	predictCmd.Flags().IntVar(&p.AwayScore, "away-score", 0, "current away team score")

	if err := predictCmd.MarkFlagFilename("from-csv", "csv"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark from-csv flag as filename: %v", err))
	}

	app.cmd.AddCommand(predictCmd)
}

func (a App) predictCSVRun() error {
	conf := a.config.Predict

	m, err := wp.Load(a.config.ModelPath)
	if err != nil {
		return err
	}

	f, err := os.Open(conf.FromCSV)
	if err != nil {
		return fmt.Errorf("could not open plays file: %w", err)
	}
	defer f.Close()
	ds, err := dataset.ReadCSV(f)
	if err != nil {
		return err
	}

	out := ds.Clone()
	if conf.WithError {
		probs, stderr, err := m.PredictWithError(ds)
		if err != nil {
			return err
		}
		if err := out.AddFloats("win_probability", probs); err != nil {
			return err
		}
		if err := out.AddFloats("win_probability_se", stderr); err != nil {
			return err
		}
	} else {
		probs, err := m.Predict(ds)
		if err != nil {
			return err
		}
		if err := out.AddFloats("win_probability", probs); err != nil {
			return err
		}
	}

	w := os.Stdout
	if conf.Output != "" {
		w, err = os.Create(conf.Output)
		if err != nil {
			return fmt.Errorf("could not create output file: %w", err)
		}
		defer w.Close()
	}
	return out.WriteCSV(w)
}

func (a App) predictPlayRun() error {
	conf := a.config.Predict

	m, err := wp.Load(a.config.ModelPath)
	if err != nil {
		return err
	}

	ds, err := plays.ToDataset([]plays.Play{conf.Play}, m.Columns())
	if err != nil {
		return err
	}

	if conf.WithError {
		probs, stderr, err := m.PredictWithError(ds)
		if err != nil {
			return err
		}
		fmt.Printf("win probability: %.4f (se %.4f)\n", probs[0], stderr[0])
		return nil
	}

	probs, err := m.Predict(ds)
	if err != nil {
		return err
	}
	fmt.Printf("win probability: %.4f\n", probs[0])
	return nil
}
