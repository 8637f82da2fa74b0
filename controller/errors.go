package controller

import (
	"github.com/pkg/errors"

	"go2tv.app/plexcast/castprotocol"
)

var (
	ErrPlayQueueCreation = castprotocol.ErrPlayQueueCreation
	ErrTransportSend     = castprotocol.ErrTransportSend
	ErrMalformedMessage  = castprotocol.ErrMalformedMessage

	// ErrInvalidArgument is returned before any transport call is made.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrJoinTimeout means a blocking disconnect gave up waiting for the
	// transport's receive loop.
	ErrJoinTimeout = errors.New("transport did not drain in time")
)
