package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go2tv.app/plexcast/castprotocol"
)

func TestNewRegistersHandlers(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	c := New(tr, Config{})

	assertions.Len(tr.handlers[castprotocol.NamespacePlex], 1)
	assertions.Len(tr.handlers[castprotocol.NamespaceMedia], 1)
	assertions.Equal(castprotocol.NamespacePlex, c.CurrentNamespace())
	assertions.Equal(DefaultConfig().StepForward, c.Config().StepForward)
}

func TestNextRequestID(t *testing.T) {
	c := New(newFakeTransport(), Config{})

	for want := 1; want <= 5; want++ {
		if got := c.NextRequestID(); got != want {
			t.Fatalf("got: %d, want: %d.", got, want)
		}
	}
}

func TestNextRequestIDConcurrent(t *testing.T) {
	c := New(newFakeTransport(), Config{})

	const n = 200
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- c.NextRequestID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate request id %d", id)
		seen[id] = true
	}
	for id := 1; id <= n; id++ {
		require.True(t, seen[id], "missing request id %d", id)
	}
}

func TestControlCommands(t *testing.T) {
	tt := []struct {
		name string
		call func(*Controller) error
		want castprotocol.CommandType
	}{
		{"stop", (*Controller).Stop, castprotocol.TypeStop},
		{"pause", (*Controller).Pause, castprotocol.TypePause},
		{"play", (*Controller).Play, castprotocol.TypePlay},
		{"previous", (*Controller).Previous, castprotocol.TypePrevious},
		{"next", (*Controller).Next, castprotocol.TypeNext},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assertions := require.New(t)

			tr := newFakeTransport()
			c := New(tr, Config{})
			assertions.NoError(tc.call(c))

			sent := tr.sent()
			assertions.Len(sent, 1)
			assertions.Equal(castprotocol.NamespacePlex, sent[0].namespace)
			assertions.Equal(string(tc.want), sent[0].typ())
			assertions.Equal(1, sent[0].requestID())
			assertions.False(sent[0].sessionScoped)
		})
	}
}

func TestSeek(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	c := New(tr, Config{})

	assertions.NoError(c.Play())
	assertions.NoError(c.Seek(90, ""))

	sent := tr.sent()
	assertions.Len(sent, 2)
	seek := sent[1]
	assertions.Equal(castprotocol.NamespacePlex, seek.namespace)
	assertions.Equal(map[string]any{
		"type":        "SEEK",
		"requestId":   2.0,
		"currentTime": 90.0,
		"resumeState": "PLAYBACK_START",
	}, seek.payload)

	assertions.ErrorIs(c.Seek(-1, ""), ErrInvalidArgument)
	assertions.Len(tr.sent(), 2)
}

func TestSteps(t *testing.T) {
	tt := []struct {
		name    string
		current float64
		call    func(*Controller) error
		want    float64
	}{
		{"forward", 100, (*Controller).StepForward, 130},
		{"backward", 100, (*Controller).StepBackward, 90},
		{"backward clamps", 4, (*Controller).StepBackward, 0},
		{"rewind", 100, (*Controller).Rewind, 0},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			tr := newFakeTransport()
			tr.status.CurrentTime = tc.current
			c := New(tr, Config{})

			require.NoError(t, tc.call(c))
			sent := tr.sent()
			require.Len(t, sent, 1)
			require.Equal(t, "SEEK", sent[0].typ())
			require.Equal(t, tc.want, sent[0].payload["currentTime"])
		})
	}
}

func TestDisableSubtitles(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	tr.status.MediaSessionId = 4
	c := New(tr, Config{})

	assertions.NoError(c.DisableSubtitles())

	sent := tr.sent()
	assertions.Len(sent, 1)
	assertions.Equal(castprotocol.NamespaceMedia, sent[0].namespace)
	assertions.Equal("EDIT_TRACKS_INFO", sent[0].typ())
	assertions.Equal([]any{}, sent[0].payload["activeTrackIds"])
	assertions.EqualValues(4, sent[0].payload["mediaSessionId"])
	assertions.Equal(castprotocol.NamespacePlex, c.CurrentNamespace())
}

func TestNamespaceRestoredOnError(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	tr.sendErr = errBoom
	c := New(tr, Config{})

	err := c.DisableSubtitles()
	assertions.ErrorIs(err, ErrTransportSend)
	assertions.ErrorIs(err, errBoom)
	assertions.Equal(castprotocol.NamespacePlex, c.CurrentNamespace())
}

func TestNamespaceRestoredOnPanic(t *testing.T) {
	tr := newFakeTransport()
	tr.sendPanic = true
	c := New(tr, Config{})

	require.Panics(t, func() { _ = c.DisableSubtitles() })
	require.Equal(t, castprotocol.NamespacePlex, c.CurrentNamespace())

	tr.mu.Lock()
	tr.sendPanic = false
	tr.mu.Unlock()

	require.NoError(t, c.Stop())
}

func TestConcurrentSendsKeepNamespaces(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	c := New(tr, Config{})

	const rounds = 50
	var wg sync.WaitGroup
	for range rounds {
		for _, fn := range []func() error{c.Stop, c.Play, c.DisableSubtitles} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assertions.NoError(fn())
			}()
		}
	}
	wg.Wait()

	sent := tr.sent()
	assertions.Len(sent, 3*rounds)

	ids := make(map[int]bool)
	for _, s := range sent {
		switch s.typ() {
		case "EDIT_TRACKS_INFO":
			assertions.Equal(castprotocol.NamespaceMedia, s.namespace)
		default:
			assertions.Equal(castprotocol.NamespacePlex, s.namespace)
		}
		assertions.False(ids[s.requestID()])
		ids[s.requestID()] = true
	}
	assertions.Equal(castprotocol.NamespacePlex, c.CurrentNamespace())
}

func TestVolume(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	c := New(tr, Config{})

	assertions.ErrorIs(c.SetVolume(150), ErrInvalidArgument)
	assertions.ErrorIs(c.SetVolume(-1), ErrInvalidArgument)
	assertions.Empty(tr.volumes)

	assertions.NoError(c.SetVolume(40))
	assertions.Equal([]float64{0.4}, tr.volumes)

	_, err := c.VolumeUp(0)
	assertions.ErrorIs(err, ErrInvalidArgument)
	_, err = c.VolumeDown(-0.1)
	assertions.ErrorIs(err, ErrInvalidArgument)

	tr.status.VolumeLevel = 0.9
	level, err := c.VolumeUp(0.3)
	assertions.NoError(err)
	assertions.Equal(1.0, level)

	tr.status.VolumeLevel = 0.2
	level, err = c.VolumeDown(0.5)
	assertions.NoError(err)
	assertions.Equal(0.0, level)

	assertions.Equal([]float64{0.4, 1.0, 0.0}, tr.volumes)
}

func TestStepVolume(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	tr.status.VolumeLevel = 0.5
	c := New(tr, Config{VolumeStep: 0.25})

	level, err := c.StepVolumeUp()
	assertions.NoError(err)
	assertions.Equal(0.75, level)

	level, err = c.StepVolumeDown()
	assertions.NoError(err)
	assertions.Equal(0.25, level)
}

func TestMute(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	c := New(tr, Config{})

	muted, err := c.ToggleMuted()
	assertions.NoError(err)
	assertions.True(muted)

	tr.status.Muted = true
	muted, err = c.ToggleMuted()
	assertions.NoError(err)
	assertions.False(muted)

	assertions.NoError(c.SetMuted(true))
	assertions.Equal([]bool{true, false, true}, tr.muted)
}

func TestRefreshStatusThrottled(t *testing.T) {
	assertions := require.New(t)

	tr := newFakeTransport()
	c := New(tr, Config{StatusRefreshInterval: time.Hour})

	sent, err := c.RefreshStatus()
	assertions.NoError(err)
	assertions.True(sent)

	sent, err = c.RefreshStatus()
	assertions.NoError(err)
	assertions.False(sent)

	calls := tr.sent()
	assertions.Len(calls, 1)
	assertions.Equal(castprotocol.NamespaceMedia, calls[0].namespace)
	assertions.Equal("GET_STATUS", calls[0].typ())
}

func TestQuitApp(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, Config{})

	require.NoError(t, c.QuitApp())
	require.Equal(t, 1, tr.stops)
}

func TestDisconnect(t *testing.T) {
	tt := []struct {
		name       string
		cfg        Config
		noWait     bool
		joinResult bool
		wantJoins  int
		wantErr    error
	}{
		{"blocking", Config{JoinTimeout: time.Second}, false, true, 1, nil},
		{"blocking timeout", Config{JoinTimeout: time.Second}, false, false, 1, ErrJoinTimeout},
		{"configured non blocking", Config{NonBlockingDisconnect: true}, false, false, 0, nil},
		{"no wait", Config{}, true, false, 0, nil},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			tr := newFakeTransport()
			tr.joinResult = tc.joinResult
			c := New(tr, tc.cfg)

			var err error
			if tc.noWait {
				err = c.DisconnectNoWait()
			} else {
				err = c.Disconnect()
			}

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, 1, tr.disconnects)
			require.Len(t, tr.joins, tc.wantJoins)
			if tc.wantJoins > 0 {
				require.Equal(t, tc.cfg.JoinTimeout, tr.joins[0])
			}
		})
	}
}
