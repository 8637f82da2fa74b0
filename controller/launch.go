package controller

import (
	"context"
	"fmt"
	"sync"

	"go2tv.app/plexcast/castprotocol"
)

// LaunchState is the progress of one launch-then-send sequence.
type LaunchState int

const (
	StateIdle LaunchState = iota
	StateLaunchRequested
	StateAppConfirmed
	StateSent
	StateLaunchFailed
	StateDone
)

func (s LaunchState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLaunchRequested:
		return "LaunchRequested"
	case StateAppConfirmed:
		return "AppConfirmed"
	case StateSent:
		return "Sent"
	case StateLaunchFailed:
		return "LaunchFailed"
	case StateDone:
		return "Done"
	}
	return "Unknown"
}

// Dispatch tracks a single PlayMedia or ShowMedia call. Unlike the shared
// dispatch flag it belongs to one caller only.
type Dispatch struct {
	requestID int
	done      chan struct{}

	mu    sync.Mutex
	state LaunchState
	err   error
}

func newDispatch(requestID int) *Dispatch {
	return &Dispatch{requestID: requestID, done: make(chan struct{})}
}

// RequestID returns the request id the command was stamped with.
func (d *Dispatch) RequestID() int {
	return d.requestID
}

// Done is closed once the sequence reached StateDone.
func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

// Err returns the failure of the sequence, nil while it is still running or
// when the command was sent.
func (d *Dispatch) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Dispatch) State() LaunchState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Wait blocks until the sequence is done or ctx ends.
func (d *Dispatch) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatch) transition(s LaunchState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

func (d *Dispatch) finish(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateDone {
		return
	}
	d.err = err
	d.state = StateDone
	close(d.done)
}

// PlayMedia starts playback of item. It clears the dispatch flag, builds the
// LOAD command (creating a play queue on the server), asks the transport to
// launch the receiver app and sends the command on the media namespace once
// the app is confirmed running. The dispatch flag is set when the sequence
// ends, whether it succeeded or not.
//
// Build errors are returned synchronously and nothing is sent. Launch and
// send errors are reported through the returned Dispatch.
func (c *Controller) PlayMedia(ctx context.Context, item castprotocol.MediaItem, opts ...castprotocol.LoadOption) (*Dispatch, error) {
	c.gate.Clear()

	o := c.cfg.LoadDefaults.Apply(opts...)
	if o.RequestID == 0 {
		o.RequestID = c.nextRequestID()
	}
	d := newDispatch(o.RequestID)

	log := c.Log().With().Str("Method", "PlayMedia").Str("Key", item.Key).Int("RequestID", o.RequestID).Logger()

	cmd, err := castprotocol.BuildLoadCommand(ctx, item, o)
	if err != nil {
		log.Error().Err(err).Msg("build load command")
		d.finish(err)
		c.gate.Set()
		return d, err
	}

	c.launchThenSend(d, c.cfg.MediaNamespace, cmd, true)
	return d, nil
}

// ShowMedia shows item's details on the receiver without starting it. The
// SHOWDETAILS command is sent on the control namespace once the app is
// running. The dispatch flag is left alone.
func (c *Controller) ShowMedia(ctx context.Context, item castprotocol.MediaItem, opts ...castprotocol.LoadOption) (*Dispatch, error) {
	o := c.cfg.LoadDefaults.Apply(opts...)
	if o.RequestID == 0 {
		o.RequestID = c.nextRequestID()
	}
	d := newDispatch(o.RequestID)

	cmd, err := castprotocol.BuildShowDetailsCommand(ctx, item, o)
	if err != nil {
		c.Log().Error().Str("Method", "ShowMedia").Str("Key", item.Key).Err(err).Msg("build show details command")
		d.finish(err)
		return d, err
	}

	c.launchThenSend(d, c.cfg.ControlNamespace, cmd, false)
	return d, nil
}

// launchThenSend runs Idle -> LaunchRequested -> AppConfirmed -> Sent -> Done,
// or LaunchRequested -> LaunchFailed -> Done. The message was stamped by the
// caller and consumes no further request id.
func (c *Controller) launchThenSend(d *Dispatch, namespace string, msg castprotocol.Message, releaseGate bool) {
	log := c.Log().With().Str("Method", "launchThenSend").Str("Namespace", namespace).Int("RequestID", d.RequestID()).Logger()

	d.transition(StateLaunchRequested)
	log.Debug().Msg("launch requested")

	c.transport.LaunchApp(func(err error) {
		if releaseGate {
			defer c.gate.Set()
		}
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("Panic", r).Msg("send after launch panicked")
				d.finish(fmt.Errorf("launchThenSend: send panic: %v", r))
				panic(r)
			}
		}()

		if err != nil {
			d.transition(StateLaunchFailed)
			log.Error().Err(err).Msg("launch failed")
			d.finish(err)
			return
		}

		d.transition(StateAppConfirmed)
		if err := c.sendOn(namespace, msg, true, nil); err != nil {
			log.Error().Err(err).Msg("send after launch failed")
			d.finish(err)
			return
		}

		d.transition(StateSent)
		log.Debug().Msg("dispatched")
		d.finish(nil)
	})
}
