package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxpolokov/nflwin/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitViperConfig(t *testing.T) {
	tests := map[string]struct {
		content    string
		noConfig   bool
		badContent bool

		wantErr bool
	}{
		"Reads the configuration file":  {content: "verbosity: 2\nmodelpath: /srv/model.json\n"},
		"No configuration file is fine": {noConfig: true},

		"Error on an invalid configuration file": {content: "verbosity: [unclosed", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "nflwin-test"}
			cli.InstallConfigFlag(cmd)

			if !tc.noConfig {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tc.content), 0600), "Setup: failed to write config file")
				require.NoError(t, cmd.PersistentFlags().Set("config", path), "Setup: failed to set config flag")
			}

			vip := viper.New()
			err := cli.InitViperConfig("nflwin-test", cmd, vip)
			if tc.wantErr {
				require.Error(t, err, "InitViperConfig should have failed")
				return
			}
			require.NoError(t, err, "InitViperConfig should not fail")

			if !tc.noConfig {
				assert.Equal(t, "/srv/model.json", vip.GetString("modelpath"), "Values should come from the config file")
			}
		})
	}
}

func TestInitViperConfigBindsEnv(t *testing.T) {
	t.Setenv("NFLWIN_TEST_DBCONFIG_HOST", "envhost")

	cmd := &cobra.Command{Use: "nflwin-test"}
	cli.InstallConfigFlag(cmd)

	vip := viper.New()
	require.NoError(t, cli.InitViperConfig("nflwin-test", cmd, vip), "InitViperConfig should not fail")

	assert.Equal(t, "envhost", vip.GetString("dbconfig.host"), "Environment variables should be bound")
}
