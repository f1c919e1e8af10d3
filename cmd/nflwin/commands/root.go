// Package commands contains the commands of the nflwin command line tool.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/maxpolokov/nflwin/internal/cli"
	"github.com/maxpolokov/nflwin/internal/constants"
	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool

	ModelPath   string
	ColumnsPath string

	DBconfig  plays.Config
	DBINIPath string

	Train    trainConfig
	Validate validateConfig
	Predict  predictConfig
}

// New creates a new App instance with default values.
func New() (*App, error) {
	a := App{}

	a.cmd = &cobra.Command{
		Use:           constants.CmdName,
		Short:         "NFL win probability model toolkit",
		Long:          "nflwin trains, validates and applies a win probability model for NFL plays, backed by a PostgreSQL play-by-play database.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			))); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Update logging after loading config if necessary
			return nil
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	installTrainCmd(&a)
	installValidateCmd(&a)
	installPredictCmd(&a)
	installImportCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "enable JSON formatted logs")

	cmd.PersistentFlags().StringVarP(&app.config.ModelPath, "model", "m", constants.DefaultModelPath, "path to the model artifact")
	cmd.PersistentFlags().StringVar(&app.config.ColumnsPath, "columns", "", "path to a TOML column schema overriding the default column names")

	// Database flags
	cmd.PersistentFlags().StringVar(&app.config.DBINIPath, "db-config", "", "path to an nfldb-style config.ini with database settings")
	cmd.PersistentFlags().StringVar(&app.config.DBconfig.Host, "db-host", "", "database host")
	cmd.PersistentFlags().IntVarP(&app.config.DBconfig.Port, "db-port", "p", 5432, "database port")
	cmd.PersistentFlags().StringVarP(&app.config.DBconfig.User, "db-user", "u", "", "database user")
	cmd.PersistentFlags().StringVarP(&app.config.DBconfig.Password, "db-password", "P", "", "database password")
	cmd.PersistentFlags().StringVarP(&app.config.DBconfig.DBName, "db-name", "n", "", "database name")
	cmd.PersistentFlags().StringVarP(&app.config.DBconfig.SSLMode, "db-sslmode", "s", "", "database SSL mode")

	if err := cmd.MarkPersistentFlagFilename("model"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark model flag as filename: %v", err))
	}
	if err := cmd.MarkPersistentFlagFilename("columns", "toml"); err != nil {
		panic(fmt.Sprintf("failed to mark columns flag as filename: %v", err))
	}
	if err := cmd.MarkPersistentFlagFilename("db-config", "ini"); err != nil {
		panic(fmt.Sprintf("failed to mark db-config flag as filename: %v", err))
	}
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

// columns resolves the column schema to use: the TOML override when the
// columns flag is set, the defaults otherwise.
func (a App) columns() (plays.Columns, error) {
	if a.config.ColumnsPath == "" {
		return plays.DefaultColumns(), nil
	}
	return plays.LoadColumns(a.config.ColumnsPath)
}

// dbConfig resolves the database configuration, with flags taking precedence
// over the ini file.
func (a App) dbConfig() (plays.Config, error) {
	cfg := a.config.DBconfig
	if a.config.DBINIPath == "" {
		return cfg, nil
	}

	iniCfg, err := plays.LoadINIConfig(a.config.DBINIPath)
	if err != nil {
		return plays.Config{}, err
	}
	if cfg.Host == "" {
		cfg.Host = iniCfg.Host
	}
	if cfg.User == "" {
		cfg.User = iniCfg.User
	}
	if cfg.Password == "" {
		cfg.Password = iniCfg.Password
	}
	if cfg.DBName == "" {
		cfg.DBName = iniCfg.DBName
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = iniCfg.SSLMode
	}
	if iniCfg.Port != 0 && !a.cmd.PersistentFlags().Changed("db-port") {
		cfg.Port = iniCfg.Port
	}
	return cfg, nil
}

// loadDataset fetches labeled plays, from a CSV file when csvPath is set,
// from the plays database otherwise.
func (a App) loadDataset(ctx context.Context, csvPath string, cols plays.Columns, seasons []int, seasonTypes []string) (*dataset.Dataset, error) {
	if csvPath != "" {
		slog.Info("Reading plays from CSV", "path", csvPath)
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("could not open plays file: %w", err)
		}
		defer f.Close()
		return dataset.ReadCSV(f)
	}

	cfg, err := a.dbConfig()
	if err != nil {
		return nil, err
	}
	db, err := plays.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("Could not close database", "err", err)
		}
	}()

	return db.Fetch(ctx, cols, seasons, seasonTypes)
}
