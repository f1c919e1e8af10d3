// Package constants is responsible for defining the constants used in the application.
// It also provides the default locations for model artifacts.
package constants

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// Version is the version of the application.
	Version = "Dev"
)

const (
	// CmdName is the name of the nflwin command line tool.
	CmdName = "nflwin"

	// WPServiceCmdName is the name of the win-probability service command.
	WPServiceCmdName = "nflwin-wp-service"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultModelName is the file name of the default model artifact.
	DefaultModelName = "default_model.json"

	// ModelsFolder is the name of the folder model artifacts are stored in.
	ModelsFolder = "models"
)

// Model store variables.
var (
	// DefaultModelDir is the default directory model artifacts are saved to and loaded from.
	DefaultModelDir = ModelsFolder

	// DefaultModelPath is the full path to the default model artifact.
	DefaultModelPath = filepath.Join(DefaultModelDir, DefaultModelName)
)

func init() {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		panic(fmt.Sprintf("Could not fetch cache directory: %v", err))
	}

	DefaultModelDir = filepath.Join(userCacheDir, CmdName, ModelsFolder)
	DefaultModelPath = filepath.Join(DefaultModelDir, DefaultModelName)
}
