// Package controller drives Plex playback on a cast receiver. It multiplexes
// the Plex control namespace and the shared media namespace over a single
// castprotocol.Transport, launches the receiver app before the first media
// command and lets script style callers block until playback was dispatched.
package controller

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"go2tv.app/plexcast/castprotocol"
)

// Config is passed to New. Zero fields take the defaults of DefaultConfig.
type Config struct {
	ControlNamespace string
	MediaNamespace   string
	LoadDefaults     castprotocol.LoadOptions
	StepForward      time.Duration
	StepBackward     time.Duration
	// VolumeStep is the delta of StepVolumeUp/StepVolumeDown.
	VolumeStep float64
	// NonBlockingDisconnect makes Disconnect return without waiting for the
	// transport's receive loop to drain.
	NonBlockingDisconnect bool
	// JoinTimeout bounds a blocking Disconnect. Zero waits forever.
	JoinTimeout time.Duration
	// StatusRefreshInterval is the minimum spacing of GET_STATUS requests.
	StatusRefreshInterval time.Duration
}

// DefaultConfig returns the configuration of a Plex receiver controller.
func DefaultConfig() Config {
	return Config{
		ControlNamespace:      castprotocol.NamespacePlex,
		MediaNamespace:        castprotocol.NamespaceMedia,
		LoadDefaults:          castprotocol.DefaultLoadOptions(),
		StepForward:           30 * time.Second,
		StepBackward:          10 * time.Second,
		VolumeStep:            0.1,
		StatusRefreshInterval: time.Second,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.ControlNamespace == "" {
		cfg.ControlNamespace = def.ControlNamespace
	}
	if cfg.MediaNamespace == "" {
		cfg.MediaNamespace = def.MediaNamespace
	}
	if cfg.LoadDefaults == (castprotocol.LoadOptions{}) {
		cfg.LoadDefaults = def.LoadDefaults
	}
	// Request ids come from the sequencer, never from the template.
	cfg.LoadDefaults.RequestID = 0
	if cfg.StepForward == 0 {
		cfg.StepForward = def.StepForward
	}
	if cfg.StepBackward == 0 {
		cfg.StepBackward = def.StepBackward
	}
	if cfg.VolumeStep == 0 {
		cfg.VolumeStep = def.VolumeStep
	}
	if cfg.StatusRefreshInterval == 0 {
		cfg.StatusRefreshInterval = def.StatusRefreshInterval
	}
	return cfg
}

// Controller is the client side of one cast session. It is created once per
// session and must not be reused after Disconnect.
type Controller struct {
	transport castprotocol.Transport
	cfg       Config

	// mu guards currentNamespace and requestID.
	mu               sync.Mutex
	currentNamespace string
	requestID        int

	gate    *gate
	limiter *rate.Limiter

	statusMu    sync.Mutex
	lastStatus  []byte
	statusCount int

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// New creates a controller on transport and registers its receive handler
// for the control and media namespaces.
func New(transport castprotocol.Transport, cfg Config) *Controller {
	cfg = cfg.withDefaults()

	c := &Controller{
		transport:        transport,
		cfg:              cfg,
		currentNamespace: cfg.ControlNamespace,
		gate:             newGate(),
		limiter:          rate.NewLimiter(rate.Every(cfg.StatusRefreshInterval), 1),
	}

	transport.RegisterReceiveHandler(cfg.ControlNamespace, c.OnMessage)
	transport.RegisterReceiveHandler(cfg.MediaNamespace, c.OnMessage)

	return c
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *Controller) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Str("Component", "Controller").Logger()
		})
	}
	return &c.Logger
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// CurrentNamespace returns the namespace the controller currently speaks on.
// Outside of a send it is always the control namespace.
func (c *Controller) CurrentNamespace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentNamespace
}

// MediaStatus returns the receiver status as last reported to the
// transport.
func (c *Controller) MediaStatus() castprotocol.MediaStatus {
	return c.transport.MediaStatus()
}

// Disconnect tears the transport down. Unless the controller was configured
// with NonBlockingDisconnect it waits for the transport's receive loop to
// drain.
func (c *Controller) Disconnect() error {
	return c.disconnect(!c.cfg.NonBlockingDisconnect)
}

// DisconnectNoWait tears the transport down without waiting for its receive
// loop.
func (c *Controller) DisconnectNoWait() error {
	return c.disconnect(false)
}

func (c *Controller) disconnect(wait bool) error {
	c.Log().Debug().Str("Method", "Disconnect").Bool("Wait", wait).Msg("disconnecting")

	if err := c.transport.Disconnect(); err != nil {
		c.Log().Error().Str("Method", "Disconnect").Err(err).Msg("failed")
		return err
	}

	if wait && !c.transport.Join(c.cfg.JoinTimeout) {
		c.Log().Warn().Str("Method", "Disconnect").Dur("Timeout", c.cfg.JoinTimeout).Msg("receive loop still running")
		return ErrJoinTimeout
	}

	return nil
}
