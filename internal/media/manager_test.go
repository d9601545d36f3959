package media

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

type fakeSink struct {
	mu       sync.Mutex
	ready    bool
	remote   int
	local    int
	detached bool
}

func (f *fakeSink) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeSink) Attach(*webrtc.TrackRemote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote++
}

func (f *fakeSink) AttachLocal(webrtc.TrackLocal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local++
}

func (f *fakeSink) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = true
}

func (f *fakeSink) localAttaches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.local
}

func (f *fakeSink) isDetached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detached
}

func newTestSession(t *testing.T, sink RenderSink, onError func(error)) *Session {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("NewPeerConnection = %v", err)
	}
	return &Session{pc: pc, sink: sink, onError: onError}
}

func TestLateAttachRetrySkippedAfterDisconnect(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{ready: false}
	var errMu sync.Mutex
	var surfaced []error
	s := newTestSession(t, sink, func(err error) {
		errMu.Lock()
		surfaced = append(surfaced, err)
		errMu.Unlock()
	})

	s.attachLocalWithRetry(newVideoTrack(t))
	s.Disconnect()

	// Let the scheduled retry fire against the torn-down session.
	time.Sleep(attachRetryDelay + 200*time.Millisecond)

	if got := sink.localAttaches(); got != 0 {
		t.Errorf("local attaches after disconnect = %d, want 0", got)
	}
	if !sink.isDetached() {
		t.Error("sink not detached by teardown")
	}
	errMu.Lock()
	defer errMu.Unlock()
	if len(surfaced) != 0 {
		t.Errorf("surfaced errors after disconnect = %v, want none", surfaced)
	}
}

func TestSurfaceAfterTeardownDoesNotFireCallback(t *testing.T) {
	t.Parallel()

	var errMu sync.Mutex
	var surfaced []error
	s := newTestSession(t, &fakeSink{}, func(err error) {
		errMu.Lock()
		surfaced = append(surfaced, err)
		errMu.Unlock()
	})

	s.Disconnect()
	s.surface(&ConnectionError{Op: "connect", Cause: "connection failed"})

	errMu.Lock()
	defer errMu.Unlock()
	if len(surfaced) != 0 {
		t.Errorf("callback fired after teardown with %v, want nothing", surfaced)
	}
}
