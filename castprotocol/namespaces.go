package castprotocol

// Namespaces multiplexed over a single cast connection.
const (
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"

	// NamespacePlex is the private control namespace of the Plex receiver app.
	NamespacePlex = "urn:x-cast:plex"
)

// PlexAppID is the application id of the Plex cast receiver.
const PlexAppID = "9AC194DC"

const (
	defaultSenderID   = "sender-0"
	defaultReceiverID = "receiver-0"
)

// CommandType is the value of the "type" field of a cast message.
type CommandType string

// Outbound command types.
const (
	TypePlay           CommandType = "PLAY"
	TypePause          CommandType = "PAUSE"
	TypeStop           CommandType = "STOP"
	TypeSeek           CommandType = "SEEK"
	TypePrevious       CommandType = "PREVIOUS"
	TypeNext           CommandType = "NEXT"
	TypeStepForward    CommandType = "STEPFORWARD"
	TypeStepBackward   CommandType = "STEPBACK"
	TypeLoad           CommandType = "LOAD"
	TypeShowDetails    CommandType = "SHOWDETAILS"
	TypeEditTracksInfo CommandType = "EDIT_TRACKS_INFO"
	TypeGetStatus      CommandType = "GET_STATUS"
)

// Inbound message types.
const (
	TypeMediaStatus    = "MEDIA_STATUS"
	TypeReceiverStatus = "RECEIVER_STATUS"
	TypeLaunchError    = "LAUNCH_ERROR"
	TypeInvalidRequest = "INVALID_REQUEST"
	TypeClose          = "CLOSE"
)

// Stream types understood by the default media receiver.
const (
	StreamTypeUnknown  = "UNKNOWN"
	StreamTypeBuffered = "BUFFERED"
	StreamTypeLive     = "LIVE"
)

// ResumePlaybackStart asks the receiver to resume playing after a seek.
const ResumePlaybackStart = "PLAYBACK_START"
