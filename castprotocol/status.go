package castprotocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// MediaStatus is a snapshot of what the receiver last reported.
type MediaStatus struct {
	PlayerState    string  // "PLAYING", "PAUSED", "IDLE", "BUFFERING"
	CurrentTime    float64 // Current position in seconds
	Duration       float64
	VolumeLevel    float64 // 0.0 to 1.0
	Muted          bool
	MediaSessionId int
	ContentId      string
	ContentType    string
	Title          string
	Subtitle       string
}

// MediaMetadata is the subset of receiver metadata used for titles.
type MediaMetadata struct {
	MetadataType int    `mapstructure:"metadataType"`
	Title        string `mapstructure:"title"`
	Subtitle     string `mapstructure:"subtitle"`
	SeriesTitle  string `mapstructure:"seriesTitle"`
	Season       int    `mapstructure:"season"`
	Episode      int    `mapstructure:"episode"`
	Artist       string `mapstructure:"artist"`
	AlbumName    string `mapstructure:"albumName"`
}

const metadataTypeTVShow = 2

// DisplayTitle returns the primary title to show for the media.
func (m MediaMetadata) DisplayTitle() string {
	if m.MetadataType == metadataTypeTVShow && m.SeriesTitle != "" {
		return m.SeriesTitle
	}
	return m.Title
}

// DisplaySubtitle returns the secondary line: the episode for TV shows,
// the artist for music, the explicit subtitle otherwise.
func (m MediaMetadata) DisplaySubtitle() string {
	if m.Subtitle != "" {
		return m.Subtitle
	}

	switch {
	case m.MetadataType == metadataTypeTVShow && m.Season > 0 && m.Episode > 0:
		return fmt.Sprintf("S%02dE%02d %s", m.Season, m.Episode, m.Title)
	case m.MetadataType == metadataTypeTVShow:
		return m.Title
	case m.Artist != "":
		return m.Artist
	}
	return ""
}

type volumeStatus struct {
	Level *float64 `json:"level"`
	Muted *bool    `json:"muted"`
}

type mediaStatusEntry struct {
	MediaSessionId int           `json:"mediaSessionId"`
	PlayerState    string        `json:"playerState"`
	CurrentTime    float64       `json:"currentTime"`
	Volume         *volumeStatus `json:"volume"`
	Media          *struct {
		ContentId   string         `json:"contentId"`
		ContentType string         `json:"contentType"`
		Duration    float64        `json:"duration"`
		Metadata    map[string]any `json:"metadata"`
	} `json:"media"`
}

type mediaStatusMessage struct {
	Type   string             `json:"type"`
	Status []mediaStatusEntry `json:"status"`
}

// ApplyMediaStatus updates s from a MEDIA_STATUS payload. Fields absent from
// the payload keep their previous value.
func (s *MediaStatus) ApplyMediaStatus(payload []byte) error {
	var msg mediaStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("ApplyMediaStatus: %w: %w", ErrMalformedMessage, err)
	}
	if msg.Type != TypeMediaStatus {
		return fmt.Errorf("ApplyMediaStatus: %w: unexpected type %q", ErrMalformedMessage, msg.Type)
	}

	if len(msg.Status) == 0 {
		s.PlayerState = "IDLE"
		s.MediaSessionId = 0
		return nil
	}

	st := msg.Status[0]
	s.MediaSessionId = st.MediaSessionId
	s.PlayerState = st.PlayerState
	s.CurrentTime = st.CurrentTime
	s.applyVolume(st.Volume)

	if st.Media != nil {
		s.ContentId = st.Media.ContentId
		s.ContentType = st.Media.ContentType
		if st.Media.Duration > 0 {
			s.Duration = st.Media.Duration
		}

		if st.Media.Metadata != nil {
			var md MediaMetadata
			if err := mapstructure.WeakDecode(st.Media.Metadata, &md); err != nil {
				return fmt.Errorf("ApplyMediaStatus: decode metadata: %w", err)
			}
			s.Title = md.DisplayTitle()
			s.Subtitle = md.DisplaySubtitle()
		}
	}

	return nil
}

func (s *MediaStatus) applyVolume(v *volumeStatus) {
	if v == nil {
		return
	}
	if v.Level != nil {
		s.VolumeLevel = *v.Level
	}
	if v.Muted != nil {
		s.Muted = *v.Muted
	}
}
