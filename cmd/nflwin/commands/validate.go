package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/fileutils"
	"github.com/maxpolokov/nflwin/internal/validation"
	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type validateConfig struct {
	Seasons     []int
	SeasonTypes []string
	FromCSV     string
	Report      string
	CurveCSV    string
	MinPValue   float64
}

func installValidateCmd(app *App) {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a trained model on held-out plays",
		Long: `Validate a trained model on held-out plays and report how well its
predicted win probabilities match the observed win rates.

The command prints the combined p-value of the calibration test and fails
when it falls below --min-p. The stored model artifact is updated with the
validation results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("Running validate command")
			return app.validateRun()
		},
	}

	validateCmd.Flags().IntSliceVar(&app.config.Validate.Seasons, "season", []int{2015}, "seasons to validate on")
	validateCmd.Flags().StringSliceVar(&app.config.Validate.SeasonTypes, "season-type", []string{"Regular", "Postseason"}, "season phases to validate on")
	validateCmd.Flags().StringVar(&app.config.Validate.FromCSV, "from-csv", "", "validate on plays from a CSV file instead of the database")
	validateCmd.Flags().StringVar(&app.config.Validate.Report, "report", "", "write a YAML validation report to this path")
	validateCmd.Flags().StringVar(&app.config.Validate.CurveCSV, "curve-csv", "", "write the calibration curve as CSV to this path")
	validateCmd.Flags().Float64Var(&app.config.Validate.MinPValue, "min-p", 0, "fail when the combined p-value falls below this threshold")

	if err := validateCmd.MarkFlagFilename("from-csv", "csv"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark from-csv flag as filename: %v", err))
	}

	app.cmd.AddCommand(validateCmd)
}

func (a App) validateRun() error {
	ctx := context.Background()
	conf := a.config.Validate

	m, err := wp.Load(a.config.ModelPath)
	if err != nil {
		return err
	}

	ds, err := a.loadDataset(ctx, conf.FromCSV, m.Columns(), conf.Seasons, conf.SeasonTypes)
	if err != nil {
		return err
	}

	seasons, seasonTypes := conf.Seasons, conf.SeasonTypes
	if conf.FromCSV != "" {
		seasons, seasonTypes = nil, nil
	}

	pvalue, err := m.Validate(ds, seasons, seasonTypes)
	if err != nil {
		return err
	}
	result := m.ValidationResult()

	if err := m.Save(a.config.ModelPath); err != nil {
		return err
	}

	if conf.Report != "" {
		if err := writeReport(conf.Report, result); err != nil {
			return err
		}
	}
	if conf.CurveCSV != "" {
		if err := writeCurveCSV(conf.CurveCSV, result); err != nil {
			return err
		}
	}

	fmt.Printf("Validated on %d plays, combined p-value: %g\n", ds.NumRows(), pvalue)
	if pvalue < conf.MinPValue {
		return fmt.Errorf("combined p-value %g is below the %g threshold", pvalue, conf.MinPValue)
	}
	return nil
}

func writeReport(path string, result *validation.Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal validation report: %w", err)
	}
	if err := fileutils.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("could not write validation report: %w", err)
	}
	return nil
}

func writeCurveCSV(path string, result *validation.Result) error {
	ds := dataset.New()
	if err := ds.AddFloats("sample_probability", result.SampleProbabilities); err != nil {
		return err
	}
	if err := ds.AddFloats("predicted_win_percent", result.PredictedWinPercents); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create curve file: %w", err)
	}
	defer f.Close()
	if err := ds.WriteCSV(f); err != nil {
		return fmt.Errorf("could not write curve file: %w", err)
	}
	return nil
}
