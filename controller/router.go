package controller

import (
	"errors"
	"fmt"

	"go2tv.app/plexcast/castprotocol"
)

// sendOn sends msg on namespace. The controller's namespace is swapped for
// the duration of the send and restored on every exit path, panics
// included. The swap, send and restore happen under one lock so concurrent
// sends never observe each other's namespace.
func (c *Controller) sendOn(namespace string, msg castprotocol.Message, sessionScoped bool, onAck castprotocol.AckFunc) error {
	env := msg.Envelope()

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.currentNamespace
	if namespace != "" {
		c.currentNamespace = namespace
	}
	defer func() { c.currentNamespace = prev }()

	log := c.Log().With().Str("Method", "sendOn").Str("Namespace", c.currentNamespace).Str("Type", env.Type).Int("RequestID", env.RequestId).Logger()

	if err := c.transport.Send(c.currentNamespace, msg, sessionScoped, onAck); err != nil {
		log.Error().Err(err).Msg("send failed")
		if !errors.Is(err, ErrTransportSend) {
			err = fmt.Errorf("%w: %w", ErrTransportSend, err)
		}
		return fmt.Errorf("%s: %w", env.Type, err)
	}

	log.Debug().Msg("sent")
	return nil
}

// sendControl sends a bare command of type t on the control namespace.
func (c *Controller) sendControl(t castprotocol.CommandType) error {
	return c.sendOn(c.cfg.ControlNamespace, castprotocol.NewCommand(t, c.nextRequestID()), false, nil)
}
