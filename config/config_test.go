package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/go-scale/logger"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDriver_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadDriver("")
	require.NoError(err)
	require.Equal(DefaultDriverConfig(), cfg)
	require.Equal("127.0.0.1:3000", cfg.ListenAddress)
	require.Equal(time.Second, cfg.ResponseTimeout)
	require.Equal("Hello from Mexico!", cfg.Greeting)
	require.Empty(cfg.HTTPAddress)
}

func TestLoadDriver_File(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, `
listen_address: "0.0.0.0:4000"
response_timeout: 2500ms
greeting: ""
http_address: ":8080"
log:
  level: debug
  format: json
`)

	cfg, err := LoadDriver(path)
	require.NoError(err)
	require.Equal("0.0.0.0:4000", cfg.ListenAddress)
	require.Equal(2500*time.Millisecond, cfg.ResponseTimeout)
	require.Equal(time.Second, cfg.SendTimeout)
	require.Empty(cfg.Greeting)
	require.Equal(":8080", cfg.HTTPAddress)
	require.Equal(LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadDriver_Env(t *testing.T) {
	require := require.New(t)

	t.Setenv(EnvListen, "127.0.0.1:5000")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := LoadDriver(writeFile(t, "listen_address: \"127.0.0.1:4000\"\n"))
	require.NoError(err)
	require.Equal("127.0.0.1:5000", cfg.ListenAddress)
	require.Equal("warn", cfg.Log.Level)
}

func TestLoadDriver_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad address", content: "listen_address: nowhere\n"},
		{name: "zero timeout", content: "response_timeout: 0s\n"},
		{name: "greeting with delimiter", content: "greeting: a_b\n"},
		{name: "greeting with line break", content: "greeting: \"a\\r\\nb\"\n"},
		{name: "greeting with newline", content: "greeting: \"a\\nb\"\n"},
		{name: "bad level", content: "log:\n  level: loud\n"},
		{name: "unknown field", content: "listen: \":3000\"\n"},
		{name: "not yaml", content: "listen_address: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDriver(writeFile(t, tt.content))
			require.Error(t, err)
		})
	}

	var verr validator.ValidationErrors
	_, err := LoadDriver(writeFile(t, "listen_address: nowhere\n"))
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "ListenAddress", verr[0].Field())

	_, err = LoadDriver(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSimulator(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadSimulator("")
	require.NoError(err)
	require.Equal(DefaultSimulatorConfig(), cfg)

	t.Setenv(EnvDriverAddr, "scale-driver:3000")
	cfg, err = LoadSimulator(writeFile(t, "unit: kg\nresolution: 2\nmax_response_delay: 0s\n"))
	require.NoError(err)
	require.Equal("scale-driver:3000", cfg.DriverAddress)
	require.Equal("kg", cfg.Unit)
	require.Equal(2, cfg.Resolution)
	require.Zero(cfg.MaxResponseDelay)
	require.Equal(5*time.Second, cfg.StabilizeTime)

	_, err = LoadSimulator(writeFile(t, "resolution: 12\n"))
	require.Error(err)
}

func TestLogConfig_NewLogger(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	l, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(err)
	require.Equal(logger.WarnLevel, l.Level())

	l.Info("hidden")
	l.Warn("shown", "device", "dev-1")
	require.NotContains(buf.String(), "hidden")
	require.Contains(buf.String(), `"device":"dev-1"`)

	_, err = LogConfig{Level: "loud"}.NewLogger(&buf)
	require.Error(err)
}
