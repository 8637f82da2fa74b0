package castprotocol

import (
	"github.com/vishen/go-chromecast/cast"
)

// Message is an outbound cast payload that carries a Command envelope.
type Message interface {
	cast.Payload
	Envelope() *Command
}

// Command is the envelope shared by every outbound message. The request id is
// stamped once by the sender and never changes afterwards.
type Command struct {
	cast.PayloadHeader
	SessionId string `json:"sessionId,omitempty"`
}

// NewCommand returns a bare command of type t, used for PLAY, PAUSE, STOP,
// PREVIOUS, NEXT and GET_STATUS.
func NewCommand(t CommandType, requestID int) *Command {
	return &Command{
		PayloadHeader: cast.PayloadHeader{Type: string(t), RequestId: requestID},
	}
}

// Envelope implements Message.
func (c *Command) Envelope() *Command {
	return c
}

// CommandType returns the type tag of the command.
func (c *Command) CommandType() CommandType {
	return CommandType(c.Type)
}

// SetSessionId scopes the command to a receiver app session.
func (c *Command) SetSessionId(id string) {
	c.SessionId = id
}

// SeekCommand moves the playback position.
type SeekCommand struct {
	Command
	CurrentTime float64 `json:"currentTime"`
	ResumeState string  `json:"resumeState"`
}

// NewSeekCommand returns a SEEK to position (seconds) with the given resume
// state. An empty resumeState means PLAYBACK_START.
func NewSeekCommand(requestID int, position float64, resumeState string) *SeekCommand {
	if resumeState == "" {
		resumeState = ResumePlaybackStart
	}

	return &SeekCommand{
		Command:     *NewCommand(TypeSeek, requestID),
		CurrentTime: position,
		ResumeState: resumeState,
	}
}

// EditTracksCommand changes the active media tracks.
type EditTracksCommand struct {
	Command
	MediaSessionId int   `json:"mediaSessionId,omitempty"`
	ActiveTrackIds []int `json:"activeTrackIds"`
}

// NewEditTracksCommand returns an EDIT_TRACKS_INFO activating trackIDs. A nil
// list is sent as an empty array, which disables every text track.
func NewEditTracksCommand(requestID int, trackIDs ...int) *EditTracksCommand {
	if trackIDs == nil {
		trackIDs = []int{}
	}

	return &EditTracksCommand{
		Command:        *NewCommand(TypeEditTracksInfo, requestID),
		ActiveTrackIds: trackIDs,
	}
}

// LoadCommand is a LOAD or SHOWDETAILS command with its media request.
type LoadCommand struct {
	Command
	Media MediaLoadRequest `json:"media"`
}

var (
	_ Message = (*Command)(nil)
	_ Message = (*SeekCommand)(nil)
	_ Message = (*EditTracksCommand)(nil)
	_ Message = (*LoadCommand)(nil)
)
