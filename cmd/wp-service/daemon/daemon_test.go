package daemon_test

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/maxpolokov/nflwin/cmd/wp-service/daemon"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/testutils"
	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelp(t *testing.T) {
	a := daemon.NewForTests(t, nil, "--help")

	require.NoError(t, a.Run(), "Run should not return an error with the help flag")
}

func TestCompletion(t *testing.T) {
	a := daemon.NewForTests(t, nil, "completion", "bash")

	require.NoError(t, a.Run(), "Completion should not fail")
}

func TestVersion(t *testing.T) {
	a := daemon.NewForTests(t, nil, "version")

	require.NoError(t, a.Run(), "Run should not return an error")
}

func TestUsageError(t *testing.T) {
	a := daemon.NewForTests(t, nil, "--unknown-flag")

	require.Error(t, a.Run(), "Run should return an error on an unknown flag")
	assert.True(t, a.UsageError(), "An unknown flag is a usage error")
}

func TestAppConfig(t *testing.T) {
	conf := daemon.AppConfig{Verbosity: 1}
	conf.Daemon.ModelPath = "/srv/models/model.json"
	conf.Daemon.ListenPort = 9999
	conf.MetricsConfig.Port = 9998
	conf.DBconfig = plays.Config{Host: "db", Port: 5432, User: "nfldb", DBName: "nfldb"}

	a := daemon.NewForTests(t, &conf, "version")
	require.NoError(t, a.Run(), "Run should not return an error")

	got := a.Config()
	assert.Equal(t, conf.Daemon.ModelPath, got.Daemon.ModelPath, "The model path should come from the config file")
	assert.Equal(t, conf.Daemon.ListenPort, got.Daemon.ListenPort, "The listen port should come from the config file")
	assert.Equal(t, conf.MetricsConfig.Port, got.MetricsConfig.Port, "The metrics port should come from the config file")
	assert.Equal(t, conf.DBconfig, got.DBconfig, "The database config should come from the config file")
}

func TestRootFlags(t *testing.T) {
	a, err := daemon.New()
	require.NoError(t, err, "Setup: failed to create app")
	cmd := a.RootCmd()

	tests := map[string]testutils.FlagTestCase{
		"Model path":      {Name: "model", Short: "m", FilenameExts: []string{}},
		"Listen port":     {Name: "listen-port"},
		"Metrics port":    {Name: "metrics-port"},
		"Request timeout": {Name: "request-timeout"},
		"Database port":   {Name: "db-port", Short: "p"},
		"Verbosity":       {Name: "verbose", Short: "v", PersistentFlag: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			tc.BaseCmd = &cmd
			testutils.FlagTestHelper(t, tc)
		})
	}
}

// saveModel trains a small model on synthetic plays and writes it to path.
func saveModel(t *testing.T, path string) {
	t.Helper()

	ps := make([]plays.Play, 60)
	for i := range ps {
		p := plays.Play{Quarter: 1 + i%4, SecondsElapsed: float64(i * 10), Down: 1 + i%4,
			YardsToGo: 10, Yardline: 50, OffenseTeam: "NE", HomeTeam: "NE"}
		if i%2 == 0 {
			p.HomeScore, p.OffenseWon = 7, true
		} else {
			p.AwayScore = 7
		}
		ps[i] = p
	}
	ds, err := plays.ToDataset(ps, plays.DefaultColumns())
	require.NoError(t, err, "Setup: failed to build training dataset")

	m := wp.New(wp.WithSeed(1))
	require.NoError(t, m.Train(ds, nil, nil), "Setup: failed to train model")
	require.NoError(t, m.Save(path), "Setup: failed to save model")
}

// freePort grabs a port from the kernel and releases it for the daemon.
func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "Setup: failed to find a free port")
	defer l.Close()
	_, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err, "Setup: failed to parse the listener address")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err, "Setup: failed to parse the listener port")
	return port
}

func TestRunAndQuit(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	saveModel(t, modelPath)

	port := freePort(t)
	conf := daemon.AppConfig{}
	conf.Daemon.ModelPath = modelPath
	conf.Daemon.ReadTimeout = 5 * time.Second
	conf.Daemon.WriteTimeout = 10 * time.Second
	conf.Daemon.RequestTimeout = 3 * time.Second
	conf.Daemon.ListenHost = "localhost"
	conf.Daemon.ListenPort = port
	conf.MetricsConfig.Host = "localhost"
	conf.MetricsConfig.Port = freePort(t)

	a := daemon.NewForTests(t, &conf)

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run() }()
	a.WaitReady()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/version", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 10*time.Millisecond, "The daemon should come up and serve requests")

	a.Quit()

	select {
	case err := <-runErr:
		require.NoError(t, err, "Run should return cleanly after Quit")
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for the daemon to stop")
	}
}

func TestRunFailsWithoutModel(t *testing.T) {
	conf := daemon.AppConfig{}
	conf.Daemon.ModelPath = filepath.Join(t.TempDir(), "missing.json")
	conf.Daemon.ListenHost = "localhost"

	a := daemon.NewForTests(t, &conf)

	require.Error(t, a.Run(), "Run should fail when the model artifact does not exist")
}

func TestMigrateUsage(t *testing.T) {
	tests := map[string]struct {
		args []string
	}{
		"Error without a migrations path": {args: []string{"migrate"}},
		"Error with too many arguments":   {args: []string{"migrate", "a", "b"}},
		"Error on a nonexistent path":     {args: []string{"migrate", "/nonexistent/migrations"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a := daemon.NewForTests(t, nil, tc.args...)

			require.Error(t, a.Run(), "Migrate should have failed")
		})
	}
}

func TestMigratePathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0600), "Setup: failed to write file")

	a := daemon.NewForTests(t, nil, "migrate", path)

	require.Error(t, a.Run(), "Migrate should refuse a file as migrations path")
}
