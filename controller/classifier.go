package controller

import (
	"encoding/json"
	"fmt"

	"go2tv.app/plexcast/castprotocol"
)

// OnMessage is the controller's receive handler. MEDIA_STATUS messages are
// recorded and reported as handled; anything else, malformed payloads
// included, is left to other handlers.
func (c *Controller) OnMessage(namespace string, payload []byte) bool {
	t, err := messageType(payload)
	if err != nil {
		c.Log().Debug().Str("Method", "OnMessage").Str("Namespace", namespace).Err(err).Msg("unhandled")
		return false
	}

	if t != castprotocol.TypeMediaStatus {
		return false
	}

	c.statusMu.Lock()
	c.lastStatus = append(c.lastStatus[:0], payload...)
	c.statusCount++
	c.statusMu.Unlock()

	c.Log().Debug().Str("Method", "OnMessage").Str("Namespace", namespace).RawJSON("Payload", payload).Msg("media status received")
	return true
}

func messageType(payload []byte) (string, error) {
	var hdr struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(payload, &hdr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if hdr.Type == nil || *hdr.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return *hdr.Type, nil
}

// LastStatusMessage returns a copy of the last MEDIA_STATUS payload and the
// number of status messages received so far.
func (c *Controller) LastStatusMessage() ([]byte, int) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return append([]byte(nil), c.lastStatus...), c.statusCount
}
