package castprotocol

import (
	"time"
)

// ReceiveHandler is called from the transport's receive loop for every
// inbound message on the namespace it was registered for. It returns true
// when it consumed the message; the transport then stops offering it to
// other handlers.
type ReceiveHandler func(namespace string, payload []byte) bool

// AckFunc is called once with the reply whose requestId matches a sent
// message.
type AckFunc func(payload []byte)

// LaunchFunc is called exactly once when the receiver app is confirmed
// running, or with an error when the launch failed.
type LaunchFunc func(err error)

// Transport is the cast channel a controller drives. Implementations deliver
// receive and launch callbacks from their own goroutine.
type Transport interface {
	// LaunchApp starts the receiver app, or attaches to a running
	// instance, and then calls onLaunched. onLaunched is invoked even when
	// the app was already running.
	LaunchApp(onLaunched LaunchFunc)
	// Send writes msg on namespace to the running app. When sessionScoped
	// is set the message carries the app session id.
	Send(namespace string, msg Message, sessionScoped bool, onAck AckFunc) error
	RegisterReceiveHandler(namespace string, handler ReceiveHandler)
	Disconnect() error
	// Join waits until the receive loop has exited. A non-positive timeout
	// waits forever. It reports whether the loop exited in time.
	Join(timeout time.Duration) bool

	SetVolume(level float64) error
	SetMuted(muted bool) error
	StopApp() error
	MediaStatus() MediaStatus
}
