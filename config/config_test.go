package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go2tv.app/plexcast/castprotocol"
	"go2tv.app/plexcast/controller"
)

func TestGetOrCreateWritesDefaults(t *testing.T) {
	assertions := require.New(t)

	path := filepath.Join(t.TempDir(), "plexcast", "plexcast.toml")

	cfg, err := GetOrCreate(path)
	assertions.NoError(err)
	assertions.Equal(Default(), cfg)
	assertions.FileExists(path)

	again, err := GetOrCreate(path)
	assertions.NoError(err)
	assertions.Equal(cfg, again)
}

func TestLoadOverridesDefaults(t *testing.T) {
	assertions := require.New(t)

	path := filepath.Join(t.TempDir(), "plexcast.toml")
	assertions.NoError(os.WriteFile(path, []byte(`
log_level = "debug"

[device]
address = "10.0.0.5"

[controller]
step_forward_s = 15
non_blocking_disconnect = true

[load]
direct_play = false
subtitle_size = 125

[plex]
base_url = "http://10.0.0.2:32400"
token = "tok"
`), 0600))

	cfg, err := Load(path)
	assertions.NoError(err)

	assertions.Equal("debug", cfg.LogLevel)
	assertions.Equal("10.0.0.5", cfg.Device.Address)
	assertions.Equal(castprotocol.PlexAppID, cfg.Device.AppID)

	ctl := cfg.ControllerConfig()
	assertions.Equal(15*time.Second, ctl.StepForward)
	assertions.Equal(10*time.Second, ctl.StepBackward)
	assertions.True(ctl.NonBlockingDisconnect)
	assertions.Equal(castprotocol.NamespacePlex, ctl.ControlNamespace)
	assertions.False(ctl.LoadDefaults.DirectPlay)
	assertions.True(ctl.LoadDefaults.DirectStream)
	assertions.Equal(125, ctl.LoadDefaults.SubtitleSize)
	assertions.Zero(ctl.LoadDefaults.RequestID)

	plex := cfg.PlexOptions()
	assertions.Equal("tok", plex.Token)
	assertions.Equal(20*time.Second, plex.Timeout)
}

func TestDefaultRoundTripsControllerConfig(t *testing.T) {
	require.Equal(t, controller.DefaultConfig(), Default().ControllerConfig())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level = "), 0600))

	tt := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing", filepath.Join(dir, "missing.toml")},
		{"directory", dir},
		{"invalid toml", bad},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.path)
			require.Error(t, err)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/xdg", "plexcast", "plexcast.toml"), path)
}

func TestTransportOptions(t *testing.T) {
	cfg := Default()
	require.Len(t, cfg.TransportOptions(), 3)

	cfg.Device = DeviceConfig{}
	require.Empty(t, cfg.TransportOptions())

	tr, err := castprotocol.NewCastTransport("10.0.0.5", Default().TransportOptions()...)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", tr.Host())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Default()
	cfg.LogLevel = "warn"
	log := cfg.Logger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	cfg.LogLevel = "bogus"
	buf.Reset()
	log = cfg.Logger(&buf)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}
