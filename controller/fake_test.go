package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go2tv.app/plexcast/castprotocol"
)

type sendCall struct {
	namespace     string
	sessionScoped bool
	payload       map[string]any
}

func (s sendCall) typ() string {
	t, _ := s.payload["type"].(string)
	return t
}

func (s sendCall) requestID() int {
	id, _ := s.payload["requestId"].(float64)
	return int(id)
}

// fakeTransport records what the controller asks of the cast channel.
type fakeTransport struct {
	mu       sync.Mutex
	sends    []sendCall
	handlers map[string][]castprotocol.ReceiveHandler
	launches int
	volumes  []float64
	muted    []bool
	stops    int

	disconnects int
	joins       []time.Duration
	joinResult  bool

	status    castprotocol.MediaStatus
	launchErr error
	sendErr   error
	sendPanic bool
	// holdLaunch delays launch callbacks until it is closed.
	holdLaunch chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers:   make(map[string][]castprotocol.ReceiveHandler),
		joinResult: true,
	}
}

func (f *fakeTransport) LaunchApp(onLaunched castprotocol.LaunchFunc) {
	f.mu.Lock()
	f.launches++
	err, hold := f.launchErr, f.holdLaunch
	f.mu.Unlock()

	if hold == nil {
		onLaunched(err)
		return
	}
	go func() {
		<-hold
		onLaunched(err)
	}()
}

func (f *fakeTransport) Send(namespace string, msg castprotocol.Message, sessionScoped bool, onAck castprotocol.AckFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendPanic {
		panic("send exploded")
	}
	if f.sendErr != nil {
		return f.sendErr
	}

	if sessionScoped {
		msg.Envelope().SetSessionId("s-1")
	}

	out, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(out, &payload); err != nil {
		return err
	}

	f.sends = append(f.sends, sendCall{namespace: namespace, sessionScoped: sessionScoped, payload: payload})
	return nil
}

func (f *fakeTransport) RegisterReceiveHandler(namespace string, handler castprotocol.ReceiveHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[namespace] = append(f.handlers[namespace], handler)
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeTransport) Join(timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, timeout)
	return f.joinResult
}

func (f *fakeTransport) SetVolume(level float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, level)
	return nil
}

func (f *fakeTransport) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, muted)
	return nil
}

func (f *fakeTransport) StopApp() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeTransport) MediaStatus() castprotocol.MediaStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) sent() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.sends...)
}

// fakeLibrary hands out play queue ids.
type fakeLibrary struct {
	mu      sync.Mutex
	queueID int
	err     error
	calls   int
}

func (l *fakeLibrary) ServerInfo() castprotocol.ServerInfo {
	return castprotocol.ServerInfo{
		BaseURL:           "http://192.168.1.10:32400",
		MachineIdentifier: "abc123",
		AccessToken:       "tok",
		Username:          "alice",
	}
}

func (l *fakeLibrary) CreatePlayQueue(ctx context.Context, key, kind string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.queueID, l.err
}

var errBoom = errors.New("boom")

func episode(lib castprotocol.Library) castprotocol.MediaItem {
	return castprotocol.MediaItem{Key: "/library/metadata/7", Type: "episode", Title: "Pilot", Library: lib}
}
