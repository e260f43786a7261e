package telemetry_test

import (
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/tbclient/api"
	"github.com/devicelink/tbclient/tbtest"
	"github.com/devicelink/tbclient/telemetry"
)

// frameRecorder collects delivered frames and signals the close
// notification.
type frameRecorder struct {
	mu     sync.Mutex
	frames []map[string]any
	nils   int
	closed chan struct{}
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{closed: make(chan struct{})}
}

func (r *frameRecorder) handle(frame map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if frame == nil {
		r.nils++
		if r.nils == 1 {
			close(r.closed)
		}
		return
	}
	r.frames = append(r.frames, frame)
}

func (r *frameRecorder) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-r.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the close notification")
	}
}

func TestSubscribeSendsSingleCommand(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()
	p.WsPush = []string{
		`{"subscriptionId":42,"data":{"temperature":[[1000,"20.5"]]}}`,
		`{"subscriptionId":42,"data":{"temperature":[[2000,"21.0"]]}}`,
	}

	rec := newFrameRecorder()
	stream := telemetry.NewTelemetryStream(p.HostPort(), nil)
	err := stream.Open(p.Token, api.NewDeviceRef("dev-1"), 42, rec.handle)
	require.NoError(t, err)
	rec.waitClosed(t)

	// exactly one subscription command, sent before any inbound frame
	require.Len(t, p.WsSubFrames, 1)
	var sub map[string]any
	require.NoError(t, jsoniter.Unmarshal(p.WsSubFrames[0], &sub))
	tsSubCmds, ok := sub["tsSubCmds"].([]any)
	require.True(t, ok)
	require.Len(t, tsSubCmds, 1)
	cmd := tsSubCmds[0].(map[string]any)
	assert.Equal(t, "DEVICE", cmd["entityType"])
	assert.Equal(t, "dev-1", cmd["entityId"])
	assert.Equal(t, "LATEST_TELEMETRY", cmd["scope"])
	assert.EqualValues(t, 42, cmd["cmdId"])
	assert.Empty(t, sub["historyCmds"])
	assert.Empty(t, sub["attrSubCmds"])

	// frames arrive in order, then exactly one nil, then nothing
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.frames, 2)
	assert.EqualValues(t, 42, rec.frames[0]["subscriptionId"])
	assert.Equal(t, 1, rec.nils)
	assert.Equal(t, telemetry.StateClosed, stream.State())
}

func TestOpenCapturesTokenInURI(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()

	rec := newFrameRecorder()
	stream := telemetry.NewTelemetryStream(p.HostPort(), nil)
	err := stream.Open(p.Token, api.NewDeviceRef("dev-1"), 1, rec.handle)
	require.NoError(t, err)
	rec.waitClosed(t)

	require.Len(t, p.WsTokens, 1)
	assert.Equal(t, p.Token, p.WsTokens[0])
}

func TestOpenRejectsBadToken(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()

	stream := telemetry.NewTelemetryStream(p.HostPort(), nil)
	err := stream.Open("wrong-token", api.NewDeviceRef("dev-1"), 1, func(map[string]any) {})
	require.Error(t, err)
	assert.Equal(t, telemetry.StateClosed, stream.State())
}

func TestOpenRequiresEntityAndHandler(t *testing.T) {
	stream := telemetry.NewTelemetryStream("localhost:9", nil)

	err := stream.Open("tok", api.EntityRef{}, 1, func(map[string]any) {})
	require.Error(t, err)
	err = stream.Open("tok", api.NewDeviceRef("dev-1"), 1, nil)
	require.Error(t, err)
	assert.Equal(t, telemetry.StateClosed, stream.State())
}

func TestCloseDeliversSingleNil(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()
	// server holds the channel open until the client closes it
	p.WsHold = true

	rec := newFrameRecorder()
	stream := telemetry.NewTelemetryStream(p.HostPort(), nil)
	err := stream.Open(p.Token, api.NewDeviceRef("dev-1"), 7, rec.handle)
	require.NoError(t, err)
	assert.Equal(t, telemetry.StateOpen, stream.State())

	stream.Close()
	rec.waitClosed(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.frames)
	assert.Equal(t, 1, rec.nils)
	assert.Equal(t, telemetry.StateClosed, stream.State())
}

func TestReopenAfterClose(t *testing.T) {
	p := tbtest.NewPlatform()
	defer p.Close()
	p.WsHold = true

	rec1 := newFrameRecorder()
	stream := telemetry.NewTelemetryStream(p.HostPort(), nil)
	require.NoError(t, stream.Open(p.Token, api.NewDeviceRef("dev-1"), 1, rec1.handle))

	// a second Open while the channel is up must be refused
	err := stream.Open(p.Token, api.NewDeviceRef("dev-1"), 2, rec1.handle)
	require.Error(t, err)

	stream.Close()
	rec1.waitClosed(t)

	// after the final close a fresh open establishes a new channel
	rec2 := newFrameRecorder()
	require.NoError(t, stream.Open(p.Token, api.NewDeviceRef("dev-1"), 3, rec2.handle))
	stream.Close()
	rec2.waitClosed(t)
	assert.Len(t, p.WsSubFrames, 2)
}
