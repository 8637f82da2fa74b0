// Package config loads the plexcast TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"go2tv.app/plexcast/castprotocol"
	"go2tv.app/plexcast/controller"
	"go2tv.app/plexcast/plexapi"
)

// File is the top-level configuration.
type File struct {
	LogLevel   string           `toml:"log_level"`
	Device     DeviceConfig     `toml:"device"`
	Controller ControllerConfig `toml:"controller"`
	Load       LoadConfig       `toml:"load"`
	Plex       PlexConfig       `toml:"plex"`
}

// DeviceConfig selects the cast device and receiver app.
type DeviceConfig struct {
	Address         string `toml:"address"`
	AppID           string `toml:"app_id"`
	LaunchTimeoutMS int64  `toml:"launch_timeout_ms"`
	ConnectRetries  int    `toml:"connect_retries"`
}

// ControllerConfig mirrors controller.Config.
type ControllerConfig struct {
	ControlNamespace      string  `toml:"control_namespace"`
	MediaNamespace        string  `toml:"media_namespace"`
	StepForwardS          int64   `toml:"step_forward_s"`
	StepBackwardS         int64   `toml:"step_backward_s"`
	VolumeStep            float64 `toml:"volume_step"`
	NonBlockingDisconnect bool    `toml:"non_blocking_disconnect"`
	JoinTimeoutMS         int64   `toml:"join_timeout_ms"`
	StatusRefreshMS       int64   `toml:"status_refresh_ms"`
}

// LoadConfig holds the default options of load commands.
type LoadConfig struct {
	Offset                   int     `toml:"offset"`
	DirectPlay               bool    `toml:"direct_play"`
	DirectStream             bool    `toml:"direct_stream"`
	SubtitleSize             int     `toml:"subtitle_size"`
	AudioBoost               int     `toml:"audio_boost"`
	Autoplay                 bool    `toml:"autoplay"`
	CurrentTime              float64 `toml:"current_time"`
	TranscoderVideo          bool    `toml:"transcoder_video"`
	TranscoderVideoRemuxOnly bool    `toml:"transcoder_video_remux_only"`
	TranscoderAudio          bool    `toml:"transcoder_audio"`
	IsVerifiedHostname       bool    `toml:"is_verified_hostname"`
	ServerVersion            string  `toml:"server_version"`
}

// PlexConfig points at the media server.
type PlexConfig struct {
	BaseURL   string `toml:"base_url"`
	Token     string `toml:"token"`
	RetryMax  int    `toml:"retry_max"`
	TimeoutMS int64  `toml:"timeout_ms"`
}

// Default returns the built-in configuration.
func Default() File {
	ctl := controller.DefaultConfig()
	lo := ctl.LoadDefaults

	return File{
		LogLevel: "info",
		Device: DeviceConfig{
			AppID:           castprotocol.PlexAppID,
			LaunchTimeoutMS: 20000,
			ConnectRetries:  5,
		},
		Controller: ControllerConfig{
			ControlNamespace: ctl.ControlNamespace,
			MediaNamespace:   ctl.MediaNamespace,
			StepForwardS:     int64(ctl.StepForward / time.Second),
			StepBackwardS:    int64(ctl.StepBackward / time.Second),
			VolumeStep:       ctl.VolumeStep,
			StatusRefreshMS:  ctl.StatusRefreshInterval.Milliseconds(),
		},
		Load: LoadConfig{
			Offset:                   lo.Offset,
			DirectPlay:               lo.DirectPlay,
			DirectStream:             lo.DirectStream,
			SubtitleSize:             lo.SubtitleSize,
			AudioBoost:               lo.AudioBoost,
			Autoplay:                 lo.Autoplay,
			CurrentTime:              lo.CurrentTime,
			TranscoderVideo:          lo.TranscoderVideo,
			TranscoderVideoRemuxOnly: lo.TranscoderVideoRemuxOnly,
			TranscoderAudio:          lo.TranscoderAudio,
			IsVerifiedHostname:       lo.IsVerifiedHostname,
			ServerVersion:            lo.ServerVersion,
		},
		Plex: PlexConfig{
			RetryMax:  2,
			TimeoutMS: 20000,
		},
	}
}

// Load reads path on top of the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (File, error) {
	if path == "" {
		return File{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, errors.New("config path is a directory")
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return File{}, fmt.Errorf("Load: failed to decode config due to error %w", err)
	}
	return cfg, nil
}

// GetOrCreate loads path, writing the defaults there first when it does
// not exist.
func GetOrCreate(path string) (File, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Load(path)
	case !os.IsNotExist(err):
		return File{}, fmt.Errorf("GetOrCreate: failed to access config due to error %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return File{}, fmt.Errorf("GetOrCreate: failed to create default path due to error %w", err)
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg File) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("Save: failed to open config due to error %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("Save: failed to encode config due to error %w", err)
	}
	return nil
}

// DefaultPath returns the default config location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "plexcast", "plexcast.toml"), nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("DefaultPath: failed to get config dir due to error %w", err)
	}
	return filepath.Join(dir, "plexcast", "plexcast.toml"), nil
}

// ControllerConfig converts the file into a controller configuration.
func (f File) ControllerConfig() controller.Config {
	return controller.Config{
		ControlNamespace: f.Controller.ControlNamespace,
		MediaNamespace:   f.Controller.MediaNamespace,
		LoadDefaults: castprotocol.LoadOptions{
			Offset:                   f.Load.Offset,
			DirectPlay:               f.Load.DirectPlay,
			DirectStream:             f.Load.DirectStream,
			SubtitleSize:             f.Load.SubtitleSize,
			AudioBoost:               f.Load.AudioBoost,
			Autoplay:                 f.Load.Autoplay,
			CurrentTime:              f.Load.CurrentTime,
			TranscoderVideo:          f.Load.TranscoderVideo,
			TranscoderVideoRemuxOnly: f.Load.TranscoderVideoRemuxOnly,
			TranscoderAudio:          f.Load.TranscoderAudio,
			IsVerifiedHostname:       f.Load.IsVerifiedHostname,
			ServerVersion:            f.Load.ServerVersion,
		},
		StepForward:           time.Duration(f.Controller.StepForwardS) * time.Second,
		StepBackward:          time.Duration(f.Controller.StepBackwardS) * time.Second,
		VolumeStep:            f.Controller.VolumeStep,
		NonBlockingDisconnect: f.Controller.NonBlockingDisconnect,
		JoinTimeout:           time.Duration(f.Controller.JoinTimeoutMS) * time.Millisecond,
		StatusRefreshInterval: time.Duration(f.Controller.StatusRefreshMS) * time.Millisecond,
	}
}

// TransportOptions returns the cast transport options of the file.
func (f File) TransportOptions() []castprotocol.TransportOption {
	var opts []castprotocol.TransportOption
	if f.Device.AppID != "" {
		opts = append(opts, castprotocol.WithAppID(f.Device.AppID))
	}
	if f.Device.LaunchTimeoutMS > 0 {
		opts = append(opts, castprotocol.WithLaunchTimeout(time.Duration(f.Device.LaunchTimeoutMS)*time.Millisecond))
	}
	if f.Device.ConnectRetries > 0 {
		opts = append(opts, castprotocol.WithConnectRetries(f.Device.ConnectRetries))
	}
	return opts
}

// PlexOptions returns the plexapi options of the file.
func (f File) PlexOptions() plexapi.Options {
	return plexapi.Options{
		Token:    f.Plex.Token,
		RetryMax: f.Plex.RetryMax,
		Timeout:  time.Duration(f.Plex.TimeoutMS) * time.Millisecond,
	}
}

// Logger returns a timestamped logger writing to w at the configured level.
// Unknown levels fall back to info.
func (f File) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(f.LogLevel))
	if err != nil || f.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
