package controller

import (
	"fmt"

	"go2tv.app/plexcast/castprotocol"
)

// Stop stops playback.
func (c *Controller) Stop() error {
	return c.sendControl(castprotocol.TypeStop)
}

// Pause pauses playback.
func (c *Controller) Pause() error {
	return c.sendControl(castprotocol.TypePause)
}

// Play resumes playback.
func (c *Controller) Play() error {
	return c.sendControl(castprotocol.TypePlay)
}

// Previous jumps to the previous play queue item.
func (c *Controller) Previous() error {
	return c.sendControl(castprotocol.TypePrevious)
}

// Next jumps to the next play queue item.
func (c *Controller) Next() error {
	return c.sendControl(castprotocol.TypeNext)
}

// Seek moves to position seconds. An empty resumeState resumes playback.
func (c *Controller) Seek(position float64, resumeState string) error {
	if position < 0 {
		return fmt.Errorf("Seek: %w: negative position %v", ErrInvalidArgument, position)
	}
	cmd := castprotocol.NewSeekCommand(c.nextRequestID(), position, resumeState)
	return c.sendOn(c.cfg.ControlNamespace, cmd, false, nil)
}

// Rewind seeks to the start.
func (c *Controller) Rewind() error {
	return c.Seek(0, "")
}

// StepForward seeks StepForward past the current position.
func (c *Controller) StepForward() error {
	pos := c.transport.MediaStatus().CurrentTime + c.cfg.StepForward.Seconds()
	return c.Seek(pos, "")
}

// StepBackward seeks StepBackward before the current position, not past the
// start.
func (c *Controller) StepBackward() error {
	pos := max(c.transport.MediaStatus().CurrentTime-c.cfg.StepBackward.Seconds(), 0)
	return c.Seek(pos, "")
}

// DisableSubtitles deactivates every text track. It speaks on the media
// namespace.
func (c *Controller) DisableSubtitles() error {
	cmd := castprotocol.NewEditTracksCommand(c.nextRequestID())
	cmd.MediaSessionId = c.transport.MediaStatus().MediaSessionId
	return c.sendOn(c.cfg.MediaNamespace, cmd, false, nil)
}

// RefreshStatus asks the receiver for a fresh MEDIA_STATUS. Requests closer
// together than StatusRefreshInterval are dropped; the result reports
// whether one was sent.
func (c *Controller) RefreshStatus() (bool, error) {
	if !c.limiter.Allow() {
		return false, nil
	}
	cmd := castprotocol.NewCommand(castprotocol.TypeGetStatus, c.nextRequestID())
	if err := c.sendOn(c.cfg.MediaNamespace, cmd, false, nil); err != nil {
		return false, err
	}
	return true, nil
}

// QuitApp stops the receiver app.
func (c *Controller) QuitApp() error {
	c.Log().Debug().Str("Method", "QuitApp").Msg("stopping receiver app")
	return c.transport.StopApp()
}

// SetVolume sets the device volume to percent (0 to 100).
func (c *Controller) SetVolume(percent float64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("SetVolume: %w: %v not in [0,100]", ErrInvalidArgument, percent)
	}
	return c.transport.SetVolume(percent / 100)
}

// VolumeUp raises the volume by delta (0.0 to 1.0 scale) unless it is
// already maxed and returns the new level.
func (c *Controller) VolumeUp(delta float64) (float64, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("VolumeUp: %w: volume delta must be greater than zero, not %v", ErrInvalidArgument, delta)
	}
	return c.adjustVolume(delta)
}

// VolumeDown lowers the volume by delta unless it is already 0 and returns
// the new level.
func (c *Controller) VolumeDown(delta float64) (float64, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("VolumeDown: %w: volume delta must be greater than zero, not %v", ErrInvalidArgument, delta)
	}
	return c.adjustVolume(-delta)
}

// StepVolumeUp is VolumeUp by the configured VolumeStep.
func (c *Controller) StepVolumeUp() (float64, error) {
	return c.VolumeUp(c.cfg.VolumeStep)
}

// StepVolumeDown is VolumeDown by the configured VolumeStep.
func (c *Controller) StepVolumeDown() (float64, error) {
	return c.VolumeDown(c.cfg.VolumeStep)
}

func (c *Controller) adjustVolume(delta float64) (float64, error) {
	level := c.transport.MediaStatus().VolumeLevel + delta
	switch {
	case level > 1.0:
		level = 1.0
	case level < 0.0:
		level = 0.0
	}

	if err := c.transport.SetVolume(level); err != nil {
		return 0, err
	}
	return level, nil
}

// SetMuted mutes or unmutes the device.
func (c *Controller) SetMuted(muted bool) error {
	return c.transport.SetMuted(muted)
}

// ToggleMuted flips the mute state last reported by the receiver and returns
// the requested state.
func (c *Controller) ToggleMuted() (bool, error) {
	muted := !c.transport.MediaStatus().Muted
	if err := c.transport.SetMuted(muted); err != nil {
		return false, err
	}
	return muted, nil
}
