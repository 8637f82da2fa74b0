package castprotocol

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultServerVersion is the server version announced to the receiver
// unless WithServerVersion overrides it. The receiver app keys its behavior
// on this value, not on the version the server reports.
const DefaultServerVersion = "1.4.3.3433"

// ServerInfo holds the connection facts of the media server owning an item.
type ServerInfo struct {
	BaseURL            string
	MachineIdentifier  string
	AccessToken        string
	Username           string
	Version            string
	MyPlexSubscription bool
}

// Library is the media library collaborator used while building load
// commands.
type Library interface {
	ServerInfo() ServerInfo
	// CreatePlayQueue materializes a server side play queue holding the item
	// and returns its identifier.
	CreatePlayQueue(ctx context.Context, key, kind string) (int, error)
}

// LoadOptions are the overridable fields of a load command. A zero
// RequestID lets the sender stamp the command.
type LoadOptions struct {
	RequestID                int
	Offset                   int
	DirectPlay               bool
	DirectStream             bool
	SubtitleSize             int
	AudioBoost               int
	Autoplay                 bool
	CurrentTime              float64
	TranscoderVideo          bool
	TranscoderVideoRemuxOnly bool
	TranscoderAudio          bool
	IsVerifiedHostname       bool
	ServerVersion            string
}

// DefaultLoadOptions returns the receiver defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		DirectPlay:         true,
		DirectStream:       true,
		SubtitleSize:       100,
		AudioBoost:         100,
		Autoplay:           true,
		TranscoderVideo:    true,
		TranscoderAudio:    true,
		IsVerifiedHostname: true,
		ServerVersion:      DefaultServerVersion,
	}
}

// LoadOption overrides a single field of LoadOptions.
type LoadOption func(*LoadOptions)

// Apply returns a copy of o with opts applied in order.
func (o LoadOptions) Apply(opts ...LoadOption) LoadOptions {
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithRequestID stamps the command with an id obtained by the caller.
func WithRequestID(id int) LoadOption {
	return func(o *LoadOptions) { o.RequestID = id }
}

// WithOffset sets the playback offset in milliseconds.
func WithOffset(ms int) LoadOption {
	return func(o *LoadOptions) { o.Offset = ms }
}

func WithDirectPlay(v bool) LoadOption {
	return func(o *LoadOptions) { o.DirectPlay = v }
}

func WithDirectStream(v bool) LoadOption {
	return func(o *LoadOptions) { o.DirectStream = v }
}

func WithSubtitleSize(size int) LoadOption {
	return func(o *LoadOptions) { o.SubtitleSize = size }
}

func WithAudioBoost(boost int) LoadOption {
	return func(o *LoadOptions) { o.AudioBoost = boost }
}

func WithAutoplay(v bool) LoadOption {
	return func(o *LoadOptions) { o.Autoplay = v }
}

// WithCurrentTime sets the start position in seconds.
func WithCurrentTime(seconds float64) LoadOption {
	return func(o *LoadOptions) { o.CurrentTime = seconds }
}

// WithTranscoder sets the transcoder capability flags announced for the
// server.
func WithTranscoder(video, videoRemuxOnly, audio bool) LoadOption {
	return func(o *LoadOptions) {
		o.TranscoderVideo = video
		o.TranscoderVideoRemuxOnly = videoRemuxOnly
		o.TranscoderAudio = audio
	}
}

func WithVerifiedHostname(v bool) LoadOption {
	return func(o *LoadOptions) { o.IsVerifiedHostname = v }
}

// WithServerVersion overrides the server version announced to the receiver.
func WithServerVersion(v string) LoadOption {
	return func(o *LoadOptions) { o.ServerVersion = v }
}

// BuildLoadCommand builds the LOAD command that starts playback of item.
// Building has a side effect: a play queue is created on the server.
func BuildLoadCommand(ctx context.Context, item MediaItem, opts LoadOptions) (*LoadCommand, error) {
	return buildMediaCommand(ctx, TypeLoad, item, opts)
}

// BuildShowDetailsCommand builds the SHOWDETAILS command that shows item on
// the receiver without starting it. Like BuildLoadCommand it creates a play
// queue on the server.
func BuildShowDetailsCommand(ctx context.Context, item MediaItem, opts LoadOptions) (*LoadCommand, error) {
	return buildMediaCommand(ctx, TypeShowDetails, item, opts)
}

func buildMediaCommand(ctx context.Context, t CommandType, item MediaItem, opts LoadOptions) (*LoadCommand, error) {
	if item.Library == nil {
		return nil, fmt.Errorf("build %s: %w: media item has no library", t, ErrPlayQueueCreation)
	}

	srv := item.Library.ServerInfo()
	protocol, address, port, err := splitBaseURL(srv.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", t, err)
	}

	queueID, err := item.Library.CreatePlayQueue(ctx, item.Key, item.Type)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w: %w", t, ErrPlayQueueCreation, err)
	}
	if queueID <= 0 {
		return nil, fmt.Errorf("build %s: %w: invalid play queue id %d", t, ErrPlayQueueCreation, queueID)
	}

	requestID := opts.RequestID
	if requestID == 0 {
		requestID = 1
	}

	version := opts.ServerVersion
	if version == "" {
		version = DefaultServerVersion
	}

	cmd := &LoadCommand{
		Command: *NewCommand(t, requestID),
		Media: MediaLoadRequest{
			ContentId:   item.Key,
			StreamType:  StreamTypeBuffered,
			ContentType: item.ContentType(),
			CustomData: CustomData{
				Offset:       opts.Offset,
				DirectPlay:   opts.DirectPlay,
				DirectStream: opts.DirectStream,
				SubtitleSize: opts.SubtitleSize,
				AudioBoost:   opts.AudioBoost,
				Server: ServerDescriptor{
					MachineIdentifier:        srv.MachineIdentifier,
					TranscoderVideo:          opts.TranscoderVideo,
					TranscoderVideoRemuxOnly: opts.TranscoderVideoRemuxOnly,
					TranscoderAudio:          opts.TranscoderAudio,
					Version:                  version,
					MyPlexSubscription:       srv.MyPlexSubscription,
					IsVerifiedHostname:       opts.IsVerifiedHostname,
					Protocol:                 protocol,
					Address:                  address,
					Port:                     port,
					AccessToken:              srv.AccessToken,
					User:                     ServerUser{Username: srv.Username},
				},
				ContainerKey: PlayQueueContainerKey(queueID),
			},
			Autoplay:    opts.Autoplay,
			CurrentTime: opts.CurrentTime,
		},
	}

	return cmd, nil
}

// PlayQueueContainerKey returns the container key of a play queue.
func PlayQueueContainerKey(id int) string {
	return fmt.Sprintf("/playQueues/%d?own=1&window=200", id)
}

func splitBaseURL(baseURL string) (protocol, host string, port int, err error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", "", 0, fmt.Errorf("parse server url: %q is not absolute", baseURL)
	}

	p := u.Port()
	if p == "" {
		p, err = defaultPort(u.Scheme)
		if err != nil {
			return "", "", 0, err
		}
	}

	port, err = strconv.Atoi(p)
	if err != nil {
		return "", "", 0, fmt.Errorf("parse server port: %w", err)
	}

	return u.Scheme, u.Hostname(), port, nil
}

func defaultPort(scheme string) (string, error) {
	switch scheme {
	case "http":
		return "80", nil
	case "https":
		return "443", nil
	}
	return "", fmt.Errorf("parse server url: unknown scheme %q", scheme)
}
