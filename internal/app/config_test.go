package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// loadArgs parses args the way the binary does and returns the loaded config.
func loadArgs(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	var (
		config  Config
		loadErr error
	)
	app := &cli.App{
		Name:  "redis-server",
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			config, loadErr = LoadConfig(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"redis-server"}, args...)))
	return config, loadErr
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadArgs(t)
	require.NoError(t, err)
	assert.Equal(t, Config{Port: 6379}, config)

	replica, err := config.Replica()
	require.NoError(t, err)
	assert.Nil(t, replica)
}

func TestLoadConfigFlags(t *testing.T) {
	config, err := loadArgs(t,
		"--port", "6380",
		"--replicaof", "localhost 6379",
		"--debug",
		"--metrics-address", ":9121",
		"--ratelimit", "50",
	)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Debug:     true,
		Port:      6380,
		ReplicaOf: "localhost 6379",
		RateLimit: 50,
		Metrics:   MetricsConfig{Address: ":9121"},
	}, config)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfigFile(t, `
port: 7000
debug: true
ratelimit: 10
metrics:
  address: ":9000"
`)

	t.Run("file over defaults", func(t *testing.T) {
		config, err := loadArgs(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, uint16(7000), config.Port)
		assert.True(t, config.Debug)
		assert.Equal(t, 10, config.RateLimit)
		assert.Equal(t, ":9000", config.Metrics.Address)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("REDIS_PORT", "7001")
		t.Setenv("REDIS_METRICS_ADDRESS", ":9001")
		config, err := loadArgs(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, uint16(7001), config.Port)
		assert.Equal(t, ":9001", config.Metrics.Address)
		assert.Equal(t, 10, config.RateLimit)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("REDIS_PORT", "7001")
		t.Setenv("REDIS_REPLICAOF", "envhost 1")
		config, err := loadArgs(t, "--config", path, "--port", "7002")
		require.NoError(t, err)
		assert.Equal(t, uint16(7002), config.Port)
		assert.Equal(t, "envhost 1", config.ReplicaOf)
	})
}

func TestLoadConfigErrors(t *testing.T) {
	tcs := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}},
		{name: "bad replicaof", args: []string{"--replicaof", "localhost"}},
		{name: "negative ratelimit", args: []string{"--ratelimit", "-1"}},
		{name: "port above uint16", args: []string{"--port", "70000"}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadArgs(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigPortRange(t *testing.T) {
	tcs := []struct {
		name string
		args []string
		env  string
	}{
		{name: "flag overflows uint16", args: []string{"--port", "70000"}},
		{name: "flag zero", args: []string{"--port", "0"}},
		{name: "env overflows uint16", env: "65536"},
		{name: "env negative", env: "-1"},
		{name: "file overflows uint16", args: []string{"--config", writeConfigFile(t, "port: 100000\n")}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if tc.env != "" {
				t.Setenv("REDIS_PORT", tc.env)
			}
			_, err := loadArgs(t, tc.args...)
			assert.ErrorIs(t, err, ErrInvalidPort)
		})
	}

	config, err := loadArgs(t, "--port", "65535")
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), config.Port)
}

func TestParseReplicaOf(t *testing.T) {
	tcs := []struct {
		input    string
		expected *ReplicaOf
		wantErr  bool
	}{
		{input: "localhost 6379", expected: &ReplicaOf{MasterHost: "localhost", MasterPort: 6379}},
		{input: "  10.0.0.1   6380 ", expected: &ReplicaOf{MasterHost: "10.0.0.1", MasterPort: 6380}},
		{input: "localhost:6379", expected: &ReplicaOf{MasterHost: "localhost", MasterPort: 6379}},
		{input: "[::1]:6379", expected: &ReplicaOf{MasterHost: "::1", MasterPort: 6379}},
		{input: "localhost", wantErr: true},
		{input: "localhost 70000", wantErr: true},
		{input: "localhost 0", wantErr: true},
		{input: "localhost abc", wantErr: true},
		{input: ":6379", wantErr: true},
		{input: "a b c", wantErr: true},
	}
	for _, tc := range tcs {
		t.Run(tc.input, func(t *testing.T) {
			actual, err := ParseReplicaOf(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReplicaOf)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
