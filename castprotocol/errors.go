package castprotocol

import (
	"github.com/pkg/errors"
)

var (
	// ErrPlayQueueCreation means the library did not return a usable play
	// queue id. The command must not be sent.
	ErrPlayQueueCreation = errors.New("play queue creation failed")
	// ErrTransportSend wraps failures of the underlying send primitive.
	ErrTransportSend = errors.New("transport send failed")
	// ErrMalformedMessage marks inbound payloads without a type tag.
	ErrMalformedMessage = errors.New("malformed message")

	ErrNotConnected  = errors.New("cast transport not connected")
	ErrAppNotRunning = errors.New("receiver app not running")
	ErrLaunchTimeout = errors.New("receiver app launch timed out")
	ErrLaunchFailed  = errors.New("receiver app launch failed")
)
