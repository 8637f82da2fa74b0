// Package plexapi is the small slice of the Plex Media Server API the cast
// controller needs: server identity and play queue creation.
package plexapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"go2tv.app/plexcast/castprotocol"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected plex response status")
	ErrMissingIdentity  = errors.New("plex server did not report a machine identifier")
	ErrNoPlayQueue      = errors.New("plex server did not return a play queue id")
)

const defaultProduct = "plexcast"

// Options configures Connect.
type Options struct {
	Token            string
	RetryMax         int
	Timeout          time.Duration
	ClientIdentifier string
	Product          string
	LogOutput        io.Writer
}

// Server is a connected Plex Media Server. It implements
// castprotocol.Library.
type Server struct {
	baseURL  *url.URL
	token    string
	clientID string
	product  string
	http     *http.Client
	// post never retries: a repeated POST creates a second play queue.
	post *http.Client
	info castprotocol.ServerInfo

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (s *Server) Log() *zerolog.Logger {
	if s.LogOutput != nil {
		s.initLogOnce.Do(func() {
			s.Logger = zerolog.New(s.LogOutput).With().Timestamp().Str("Component", "PlexServer").Logger()
		})
	}
	return &s.Logger
}

type identityResponse struct {
	MediaContainer struct {
		MachineIdentifier  string `json:"machineIdentifier"`
		Version            string `json:"version"`
		MyPlexSubscription bool   `json:"myPlexSubscription"`
		MyPlexUsername     string `json:"myPlexUsername"`
	} `json:"MediaContainer"`
}

// Connect reads the identity of the server at baseURL.
func Connect(ctx context.Context, baseURL string, opts Options) (*Server, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "plexapi connect: parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("plexapi connect: base url %q is not absolute", baseURL)
	}

	if opts.ClientIdentifier == "" {
		opts.ClientIdentifier = uuid.NewString()
	}
	if opts.Product == "" {
		opts.Product = defaultProduct
	}

	s := &Server{
		baseURL:   u,
		token:     opts.Token,
		clientID:  opts.ClientIdentifier,
		product:   opts.Product,
		http:      newRetryableHTTPClient(opts.RetryMax, opts.Timeout),
		post:      newRetryableHTTPClient(0, opts.Timeout),
		LogOutput: opts.LogOutput,
	}

	var id identityResponse
	if err := s.do(ctx, http.MethodGet, "/", nil, &id); err != nil {
		return nil, fmt.Errorf("plexapi connect: %w", err)
	}
	if id.MediaContainer.MachineIdentifier == "" {
		return nil, fmt.Errorf("plexapi connect: %w", ErrMissingIdentity)
	}

	s.info = castprotocol.ServerInfo{
		BaseURL:            u.String(),
		MachineIdentifier:  id.MediaContainer.MachineIdentifier,
		AccessToken:        opts.Token,
		Username:           id.MediaContainer.MyPlexUsername,
		Version:            id.MediaContainer.Version,
		MyPlexSubscription: id.MediaContainer.MyPlexSubscription,
	}

	s.Log().Debug().Str("Method", "Connect").Str("MachineIdentifier", s.info.MachineIdentifier).Str("Version", s.info.Version).Msg("connected")
	return s, nil
}

// ServerInfo implements castprotocol.Library.
func (s *Server) ServerInfo() castprotocol.ServerInfo {
	return s.info
}

// Item returns a media item of this server.
func (s *Server) Item(key, kind, title string) castprotocol.MediaItem {
	return castprotocol.MediaItem{Key: key, Type: kind, Title: title, Library: s}
}

func (s *Server) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := *s.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	req.Header = http.Header{
		"Accept":                   []string{"application/json"},
		"X-Plex-Token":             []string{s.token},
		"X-Plex-Client-Identifier": []string{s.clientID},
		"X-Plex-Product":           []string{s.product},
	}

	client := s.http
	if method != http.MethodGet && method != http.MethodHead {
		client = s.post
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w: %s", method, path, ErrUnexpectedStatus, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "%s %s: decode", method, path)
	}

	return nil
}
