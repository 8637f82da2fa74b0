package plexapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type playQueueResponse struct {
	MediaContainer struct {
		PlayQueueID int `json:"playQueueID"`
	} `json:"MediaContainer"`
}

// playQueueType maps a metadata type to the play queue type of the API.
func playQueueType(kind string) string {
	switch kind {
	case "track", "album", "artist":
		return "audio"
	case "photo", "photoalbum":
		return "photo"
	default:
		return "video"
	}
}

// LibraryURI returns the server URI of a library item.
func (s *Server) LibraryURI(key string) string {
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library%s", s.info.MachineIdentifier, key)
}

// CreatePlayQueue implements castprotocol.Library.
func (s *Server) CreatePlayQueue(ctx context.Context, key, kind string) (int, error) {
	query := url.Values{
		"type":       []string{playQueueType(kind)},
		"uri":        []string{s.LibraryURI(key)},
		"shuffle":    []string{"0"},
		"repeat":     []string{"0"},
		"continuous": []string{"0"},
		"own":        []string{"1"},
	}

	var pq playQueueResponse
	if err := s.do(ctx, http.MethodPost, "/playQueues", query, &pq); err != nil {
		s.Log().Error().Str("Method", "CreatePlayQueue").Str("Key", key).Err(err).Msg("failed")
		return 0, fmt.Errorf("CreatePlayQueue: %w", err)
	}

	if pq.MediaContainer.PlayQueueID <= 0 {
		return 0, fmt.Errorf("CreatePlayQueue: %w", ErrNoPlayQueue)
	}

	s.Log().Debug().Str("Method", "CreatePlayQueue").Str("Key", key).Int("PlayQueueID", pq.MediaContainer.PlayQueueID).Msg("created")
	return pq.MediaContainer.PlayQueueID, nil
}
