package castprotocol

// MediaLoadRequest is the "media" object of a LOAD or SHOWDETAILS command.
type MediaLoadRequest struct {
	ContentId   string     `json:"contentId"`
	StreamType  string     `json:"streamType"`
	ContentType string     `json:"contentType"`
	CustomData  CustomData `json:"customData"`
	Autoplay    bool       `json:"autoplay"`
	CurrentTime float64    `json:"currentTime"`
}

// CustomData carries the Plex specific part of a load request. The receiver
// uses it to reach the server and navigate the play queue on its own.
type CustomData struct {
	Offset       int              `json:"offset"`
	DirectPlay   bool             `json:"directPlay"`
	DirectStream bool             `json:"directStream"`
	SubtitleSize int              `json:"subtitleSize"`
	AudioBoost   int              `json:"audioBoost"`
	Server       ServerDescriptor `json:"server"`
	ContainerKey string           `json:"containerKey"`
}

// ServerDescriptor tells the receiver which media server to talk to.
type ServerDescriptor struct {
	MachineIdentifier        string     `json:"machineIdentifier"`
	TranscoderVideo          bool       `json:"transcoderVideo"`
	TranscoderVideoRemuxOnly bool       `json:"transcoderVideoRemuxOnly"`
	TranscoderAudio          bool       `json:"transcoderAudio"`
	Version                  string     `json:"version"`
	MyPlexSubscription       bool       `json:"myPlexSubscription"`
	IsVerifiedHostname       bool       `json:"isVerifiedHostname"`
	Protocol                 string     `json:"protocol"`
	Address                  string     `json:"address"`
	Port                     int        `json:"port"`
	AccessToken              string     `json:"accessToken"`
	User                     ServerUser `json:"user"`
}

// ServerUser identifies the account the receiver acts for.
type ServerUser struct {
	Username string `json:"username"`
}

// MediaItem describes a playable item of a media library.
type MediaItem struct {
	Key     string // e.g. /library/metadata/123
	Type    string // movie, episode, track, ...
	Title   string
	Library Library
}

// IsVideo reports whether the item is rendered as video.
func (m MediaItem) IsVideo() bool {
	return m.Type == "movie" || m.Type == "episode"
}

// ContentType returns the MIME type announced to the receiver.
func (m MediaItem) ContentType() string {
	if m.IsVideo() {
		return ContentTypeVideo
	}
	return ContentTypeAudio
}

// MIME types of load requests.
const (
	ContentTypeVideo = "video/mp4"
	ContentTypeAudio = "audio/mp3"
)
