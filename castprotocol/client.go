package castprotocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"
	pb "github.com/vishen/go-chromecast/cast/proto"
)

const (
	defaultCastPort       = 8009
	defaultLaunchTimeout  = 20 * time.Second
	defaultReplyTimeout   = 10 * time.Second
	defaultConnectRetries = 5
	launchPollInterval    = 500 * time.Millisecond
	// requestIDBase keeps transport request ids clear of the ones
	// go-chromecast and the controller hand out.
	requestIDBase = 1 << 20
)

type ackKey struct {
	namespace string
	requestID int
}

// CastTransport is a Transport over a go-chromecast application. The
// application owns the connection lifecycle, the receiver status and the
// device volume. The transport launches the Plex app, sends namespaced
// commands to it and dispatches inbound messages to registered handlers.
type CastTransport struct {
	app            *application.Application
	conn           cast.Conn
	mu             sync.RWMutex
	sendMu         sync.Mutex
	host           string
	port           int
	appID          string
	connecting     bool
	connected      bool
	transportID    string
	sessionID      string
	handlers       map[string][]ReceiveHandler
	pending        map[ackKey]AckFunc
	status         MediaStatus
	requestID      atomic.Int64
	inflight       sync.WaitGroup
	stop           chan struct{}
	done           chan struct{}
	launchTimeout  time.Duration
	replyTimeout   time.Duration
	connectRetries int
	Logger         zerolog.Logger
	LogOutput      io.Writer
	initLogOnce    sync.Once
}

// TransportOption configures a CastTransport.
type TransportOption func(*CastTransport)

// WithConnection replaces the default go-chromecast connection.
func WithConnection(conn cast.Conn) TransportOption {
	return func(c *CastTransport) { c.conn = conn }
}

// WithAppID selects the receiver app launched by LaunchApp.
func WithAppID(id string) TransportOption {
	return func(c *CastTransport) { c.appID = id }
}

func WithLaunchTimeout(d time.Duration) TransportOption {
	return func(c *CastTransport) { c.launchTimeout = d }
}

func WithReplyTimeout(d time.Duration) TransportOption {
	return func(c *CastTransport) { c.replyTimeout = d }
}

// WithConnectRetries sets how many times Connect retries a failed dial.
// Slow TVs need time to wake up.
func WithConnectRetries(n int) TransportOption {
	return func(c *CastTransport) { c.connectRetries = n }
}

func WithLogOutput(w io.Writer) TransportOption {
	return func(c *CastTransport) { c.LogOutput = w }
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *CastTransport) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Str("Component", "CastTransport").Logger()
		})
	}
	return &c.Logger
}

// NewCastTransport prepares a transport for the device at deviceAddr
// ("host", "host:port" or "scheme://host:port"). It does not dial.
func NewCastTransport(deviceAddr string, opts ...TransportOption) (*CastTransport, error) {
	host, port, err := parseDeviceAddr(deviceAddr)
	if err != nil {
		return nil, err
	}

	c := &CastTransport{
		host:           host,
		port:           port,
		appID:          PlexAppID,
		handlers:       make(map[string][]ReceiveHandler),
		pending:        make(map[ackKey]AckFunc),
		launchTimeout:  defaultLaunchTimeout,
		replyTimeout:   defaultReplyTimeout,
		connectRetries: defaultConnectRetries,
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.conn == nil {
		c.conn = cast.NewConnection()
	}
	c.requestID.Store(requestIDBase)

	c.app = application.NewApplication(
		application.WithConnection(c.conn),
		application.WithConnectionRetries(max(c.connectRetries, 1)),
	)
	c.app.AddMessageFunc(c.handleMessage)

	return c, nil
}

func parseDeviceAddr(deviceAddr string) (string, int, error) {
	if !strings.Contains(deviceAddr, "://") {
		deviceAddr = "tcp://" + deviceAddr
	}

	u, err := url.Parse(deviceAddr)
	if err != nil {
		return "", 0, fmt.Errorf("parse device addr: %w", err)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("parse device addr: missing host in %q", deviceAddr)
	}

	port := defaultCastPort
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return "", 0, fmt.Errorf("parse device port: %w", err)
		}
	}

	return u.Hostname(), port, nil
}

// Connect dials the device and opens the virtual connection to the
// platform receiver. The dial and its retries run without holding the
// transport lock; a Connect racing an in-flight dial returns at once.
func (c *CastTransport) Connect() error {
	c.mu.Lock()
	if c.connected || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	c.Log().Debug().Str("Method", "Connect").Str("Host", c.host).Int("Port", c.port).Msg("connecting")
	err := c.app.Start(c.host, c.port)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connecting = false

	if err != nil {
		c.Log().Error().Str("Method", "Connect").Err(err).Msg("connection failed")
		return fmt.Errorf("cast connect: %w", err)
	}

	c.connected = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	c.Log().Debug().Str("Method", "Connect").Msg("connected successfully")
	return nil
}

func (c *CastTransport) nextRequestID() int {
	return int(c.requestID.Add(1))
}

// send stamps payload with a fresh transport request id and writes it.
func (c *CastTransport) send(payload cast.Payload, destination, namespace string) error {
	return c.sendWithID(c.nextRequestID(), payload, destination, namespace)
}

func (c *CastTransport) sendWithID(requestID int, payload cast.Payload, destination, namespace string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.Send(requestID, payload, defaultSenderID, destination, namespace)
}

// Send implements Transport.
func (c *CastTransport) Send(namespace string, msg Message, sessionScoped bool, onAck AckFunc) error {
	c.mu.RLock()
	connected, transportID, sessionID := c.connected, c.transportID, c.sessionID
	c.mu.RUnlock()

	env := msg.Envelope()
	log := c.Log().With().Str("Method", "Send").Str("Namespace", namespace).Str("Type", env.Type).Int("RequestID", env.RequestId).Logger()

	if !connected {
		return fmt.Errorf("Send: %w: %w", ErrTransportSend, ErrNotConnected)
	}
	if transportID == "" {
		return fmt.Errorf("Send: %w: %w", ErrTransportSend, ErrAppNotRunning)
	}

	if sessionScoped {
		env.SetSessionId(sessionID)
	}

	key := ackKey{namespace: namespace, requestID: env.RequestId}
	if onAck != nil {
		c.mu.Lock()
		c.pending[key] = onAck
		c.mu.Unlock()
	}

	if err := c.sendWithID(env.RequestId, msg, transportID, namespace); err != nil {
		if onAck != nil {
			c.takeAck(key)
		}
		log.Error().Err(err).Msg("send failed")
		return fmt.Errorf("Send: %w: %w", ErrTransportSend, err)
	}

	log.Debug().Bool("SessionScoped", sessionScoped).Msg("sent")
	return nil
}

func (c *CastTransport) takeAck(key ackKey) AckFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	ack, ok := c.pending[key]
	if !ok {
		return nil
	}
	delete(c.pending, key)
	return ack
}

// request sends payload to the platform receiver and waits for the reply
// carrying the same request id.
func (c *CastTransport) request(payload cast.Payload, timeout time.Duration) ([]byte, error) {
	c.mu.RLock()
	stop := c.stop
	c.mu.RUnlock()

	id := c.nextRequestID()
	key := ackKey{namespace: NamespaceReceiver, requestID: id}
	replies := make(chan []byte, 1)

	c.mu.Lock()
	c.pending[key] = func(p []byte) { replies <- p }
	c.mu.Unlock()

	if err := c.sendWithID(id, payload, defaultReceiverID, NamespaceReceiver); err != nil {
		c.takeAck(key)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-replies:
		return p, nil
	case <-timer.C:
		c.takeAck(key)
		return nil, fmt.Errorf("request %d: %w", id, context.DeadlineExceeded)
	case <-stop:
		c.takeAck(key)
		return nil, ErrNotConnected
	}
}

// RegisterReceiveHandler implements Transport.
func (c *CastTransport) RegisterReceiveHandler(namespace string, handler ReceiveHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[namespace] = append(c.handlers[namespace], handler)
}

type inboundHeader struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId"`
	Reason    string `json:"reason"`
}

// handleMessage is registered with the application and runs on its receive
// goroutine. Heartbeats never reach it: the connection answers them.
func (c *CastTransport) handleMessage(msg *pb.CastMessage) {
	c.mu.RLock()
	stop := c.stop
	connected := c.connected
	if connected {
		c.inflight.Add(1)
	}
	c.mu.RUnlock()

	if !connected {
		return
	}
	defer c.inflight.Done()

	select {
	case <-stop:
		return
	default:
	}

	namespace := msg.GetNamespace()
	payload := []byte(msg.GetPayloadUtf8())

	var hdr inboundHeader
	if err := json.Unmarshal(payload, &hdr); err != nil {
		c.Log().Debug().Str("Method", "handleMessage").Str("Namespace", namespace).Err(err).Msg("undecodable payload")
	}

	switch namespace {
	case NamespaceConnection:
		if hdr.Type == TypeClose {
			c.mu.Lock()
			if msg.GetSourceId() == c.transportID {
				c.transportID, c.sessionID = "", ""
			}
			c.mu.Unlock()
		}
	case NamespaceMedia:
		if hdr.Type == TypeMediaStatus {
			c.mu.Lock()
			err := c.status.ApplyMediaStatus(payload)
			c.mu.Unlock()
			if err != nil {
				c.Log().Debug().Str("Method", "handleMessage").Err(err).Msg("media status ignored")
			}
		}
	}

	if hdr.RequestId != 0 {
		if ack := c.takeAck(ackKey{namespace: namespace, requestID: hdr.RequestId}); ack != nil {
			ack(payload)
		}
	}

	c.dispatch(namespace, payload)
}

func (c *CastTransport) dispatch(namespace string, payload []byte) {
	c.mu.RLock()
	handlers := append([]ReceiveHandler(nil), c.handlers[namespace]...)
	c.mu.RUnlock()

	for _, h := range handlers {
		if c.callHandler(h, namespace, payload) {
			return
		}
	}
}

func (c *CastTransport) callHandler(h ReceiveHandler, namespace string, payload []byte) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			c.Log().Error().Str("Method", "dispatch").Str("Namespace", namespace).Interface("Panic", r).Msg("receive handler panicked")
			handled = false
		}
	}()
	return h(namespace, payload)
}

type launchRequest struct {
	cast.PayloadHeader
	AppId string `json:"appId"`
}

// LaunchApp implements Transport. The launch runs on its own goroutine and
// onLaunched is always called exactly once.
func (c *CastTransport) LaunchApp(onLaunched LaunchFunc) {
	go func() {
		err := c.launch()
		if err != nil {
			c.Log().Error().Str("Method", "LaunchApp").Str("AppID", c.appID).Err(err).Msg("launch failed")
		} else {
			c.Log().Debug().Str("Method", "LaunchApp").Str("AppID", c.appID).Msg("app running")
		}
		if onLaunched != nil {
			onLaunched(err)
		}
	}()
}

func (c *CastTransport) launch() error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.launchTimeout)

	app, running := c.runningApp()
	if !running {
		c.Log().Debug().Str("Method", "LaunchApp").Str("AppID", c.appID).Msg("launching receiver app")
		req := &launchRequest{PayloadHeader: cast.LaunchHeader, AppId: c.appID}
		reply, err := c.request(req, c.launchTimeout)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrLaunchTimeout
			}
			return fmt.Errorf("launch: %w", err)
		}

		var hdr inboundHeader
		_ = json.Unmarshal(reply, &hdr)
		if hdr.Type == TypeLaunchError || hdr.Type == TypeInvalidRequest {
			return fmt.Errorf("launch: %w: %s", ErrLaunchFailed, hdr.Reason)
		}

		for {
			if app, running = c.runningApp(); running {
				break
			}
			if !c.IsConnected() {
				return ErrNotConnected
			}
			if time.Now().After(deadline) {
				return ErrLaunchTimeout
			}
			time.Sleep(launchPollInterval)
		}
	}

	hdr := cast.ConnectHeader
	if err := c.send(&hdr, app.TransportId, NamespaceConnection); err != nil {
		return fmt.Errorf("launch: connect to app: %w", err)
	}

	return nil
}

// runningApp refreshes the receiver status and reports whether the
// configured app is running. The app's transport and session ids are
// recorded for Send.
func (c *CastTransport) runningApp() (*cast.Application, bool) {
	if err := c.app.Update(); err != nil {
		c.Log().Debug().Str("Method", "runningApp").Err(err).Msg("app.Update failed")
		return nil, false
	}

	app := c.app.App()
	if app == nil || app.AppId != c.appID || app.TransportId == "" {
		return nil, false
	}

	c.mu.Lock()
	c.transportID, c.sessionID = app.TransportId, app.SessionId
	c.mu.Unlock()

	return app, true
}

// SetVolume sets the device volume (0.0 to 1.0).
func (c *CastTransport) SetVolume(level float64) error {
	if !c.IsConnected() {
		return fmt.Errorf("SetVolume: %w", ErrNotConnected)
	}
	c.Log().Debug().Str("Method", "SetVolume").Float64("Level", level).Msg("setting volume")
	if err := c.app.SetVolume(float32(level)); err != nil {
		c.Log().Error().Str("Method", "SetVolume").Err(err).Msg("failed")
		return fmt.Errorf("SetVolume: %w: %w", ErrTransportSend, err)
	}
	return nil
}

// SetMuted sets the device mute state.
func (c *CastTransport) SetMuted(muted bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("SetMuted: %w", ErrNotConnected)
	}
	c.Log().Debug().Str("Method", "SetMuted").Bool("Muted", muted).Msg("setting mute")
	if err := c.app.SetMuted(muted); err != nil {
		c.Log().Error().Str("Method", "SetMuted").Err(err).Msg("failed")
		return fmt.Errorf("SetMuted: %w: %w", ErrTransportSend, err)
	}
	return nil
}

type stopAppRequest struct {
	cast.PayloadHeader
	SessionId string `json:"sessionId"`
}

// StopApp quits the receiver app.
func (c *CastTransport) StopApp() error {
	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()

	if sessionID == "" {
		return fmt.Errorf("StopApp: %w", ErrAppNotRunning)
	}

	if !c.IsConnected() {
		return fmt.Errorf("StopApp: %w", ErrNotConnected)
	}

	c.Log().Debug().Str("Method", "StopApp").Str("SessionID", sessionID).Msg("stopping app")
	req := &stopAppRequest{PayloadHeader: cast.PayloadHeader{Type: string(TypeStop)}, SessionId: sessionID}
	if err := c.send(req, defaultReceiverID, NamespaceReceiver); err != nil {
		c.Log().Error().Str("Method", "StopApp").Err(err).Msg("failed")
		return fmt.Errorf("StopApp: %w: %w", ErrTransportSend, err)
	}
	return nil
}

// MediaStatus returns the last status reported by the receiver. The
// volume is the device volume tracked by the application.
func (c *CastTransport) MediaStatus() MediaStatus {
	c.mu.RLock()
	st := c.status
	c.mu.RUnlock()

	if _, _, vol := c.app.Status(); vol != nil {
		st.VolumeLevel = float64(vol.Level)
		st.Muted = vol.Muted
	}
	return st
}

// Disconnect closes the app and platform connections and the socket.
// Handlers already running finish on their own; use Join to wait for them.
func (c *CastTransport) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}

	c.Log().Debug().Str("Method", "Disconnect").Msg("closing connection")
	c.connected = false
	c.transportID, c.sessionID = "", ""
	close(c.stop)
	done := c.done
	c.mu.Unlock()

	go func() {
		c.inflight.Wait()
		close(done)
	}()

	if err := c.app.Close(false); err != nil {
		c.Log().Error().Str("Method", "Disconnect").Err(err).Msg("failed")
		return fmt.Errorf("Disconnect: %w", err)
	}
	return nil
}

// Join implements Transport. It waits for receive handlers that were
// running when Disconnect was called.
func (c *CastTransport) Join(timeout time.Duration) bool {
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()

	if done == nil {
		return true
	}

	if timeout <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// IsConnected returns whether the transport is connected.
func (c *CastTransport) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Host returns the hostname of the cast device.
func (c *CastTransport) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

var _ Transport = (*CastTransport)(nil)
