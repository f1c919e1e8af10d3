package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/spf13/cobra"
)

func installImportCmd(app *App) {
	importCmd := &cobra.Command{
		Use:   "import-plays [path-to-plays-csv]",
		Short: "Bulk-load plays into the plays database",
		Long: `Bulk-load historical plays from a CSV file into the plays database.

The file must carry the full play schema, season metadata and the per-game
play_id included. Plays are keyed by (game_id, play_id), so importing a play
that is already in the database fails. Run the service migrate command first
to create the schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("Running import-plays command")
			return app.importRun(args[0])
		},
	}

	app.cmd.AddCommand(importCmd)
}

func (a App) importRun(path string) error {
	ctx := context.Background()

	ps, err := plays.ReadCSV(path)
	if err != nil {
		return err
	}
	if len(ps) == 0 {
		return fmt.Errorf("no plays found in %s", path)
	}

	cfg, err := a.dbConfig()
	if err != nil {
		return err
	}
	db, err := plays.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("Could not close database", "err", err)
		}
	}()

	n, err := db.Insert(ctx, ps)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d plays into the plays database\n", n)
	return nil
}
