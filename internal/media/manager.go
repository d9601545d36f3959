package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// attachRetryDelay is the single timed retry before falling back to a
// manual re-attach action.
const attachRetryDelay = time.Second

// Signaler exchanges session descriptions with the external media
// transport provider. The wire protocol is the provider's concern.
type Signaler interface {
	Negotiate(ctx context.Context, offerSDP string) (answerSDP string, err error)
	SendCandidate(ctx context.Context, candidateJSON string) error
}

// RenderSink receives tracks for display. Ready reports whether the
// render surface exists yet; tracks may become available before the
// surface does.
type RenderSink interface {
	Ready() bool
	Attach(track *webrtc.TrackRemote)
	AttachLocal(track webrtc.TrackLocal)
	Detach()
}

// Manager builds media sessions for room entries.
type Manager struct {
	iceServers []webrtc.ICEServer
}

// NewManager creates a media session manager.
func NewManager(iceServers []webrtc.ICEServer) *Manager {
	return &Manager{iceServers: iceServers}
}

// Session is one room entry's media connection. Teardown runs exactly
// once regardless of which exit path reaches it first.
type Session struct {
	pc       *webrtc.PeerConnection
	role     domain.Role
	identity string
	sink     RenderSink

	mu          sync.Mutex
	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender
	audioTrack  webrtc.TrackLocal
	videoTrack  webrtc.TrackLocal

	localClose bool
	closed     bool
	onError    func(error)

	closeOnce sync.Once
}

// Connect opens a media session for the given room role.
//
// Hosts request local capture and publish both tracks; if the render
// surface is not ready when the local track publishes, one timed retry
// runs after a fixed delay, and a later surface still gets the track
// through the publish callback. Viewers attach any already-subscribed
// remote video immediately and any track that subscribes later through
// OnTrack. Reconnection is explicit: failures surface as
// *ConnectionError and the caller decides whether to retry.
func (m *Manager) Connect(ctx context.Context, signaler Signaler, role domain.Role, identity string, sink RenderSink, onError func(error)) (*Session, error) {
	pc, err := m.newPeerConnection()
	if err != nil {
		return nil, newConnectionError("connect", err)
	}

	s := &Session{
		pc:       pc,
		role:     role,
		identity: identity,
		sink:     sink,
		onError:  onError,
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		payload := candidate.ToJSON()
		if payload.Candidate == "" {
			return
		}
		if err := signaler.SendCandidate(ctx, payload.Candidate); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to send ice candidate")
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			s.handleDrop(state)
		}
	})

	if role == domain.RoleHost {
		if err := s.publishLocal(); err != nil {
			pc.Close()
			return nil, err
		}
	} else {
		s.attachSubscribed()
		pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
			log.L().Debug().Str("mime", track.Codec().MimeType).Msg("remote track subscribed")
			s.attachRemote(track)
		})
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			pc.Close()
			return nil, newConnectionError("subscribe", err)
		}
	}

	if err := s.negotiate(ctx, signaler); err != nil {
		pc.Close()
		return nil, err
	}

	return s, nil
}

func (m *Manager) newPeerConnection() (*webrtc.PeerConnection, error) {
	engine := &webrtc.MediaEngine{}
	if err := engine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	registry := &interceptor.Registry{}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, err
	}
	registry.Add(pli)

	if err := webrtc.RegisterDefaultInterceptors(engine, registry); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(engine), webrtc.WithInterceptorRegistry(registry))
	return api.NewPeerConnection(webrtc.Configuration{ICEServers: m.iceServers})
}

// publishLocal requests camera and microphone capture and publishes
// both tracks.
func (s *Session) publishLocal() error {
	video, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", s.identity,
	)
	if err != nil {
		return newConnectionError("publish", err)
	}
	audio, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", s.identity,
	)
	if err != nil {
		return newConnectionError("publish", err)
	}

	videoSender, err := s.pc.AddTrack(video)
	if err != nil {
		return newConnectionError("publish", err)
	}
	audioSender, err := s.pc.AddTrack(audio)
	if err != nil {
		return newConnectionError("publish", err)
	}

	s.mu.Lock()
	s.videoTrack, s.audioTrack = video, audio
	s.videoSender, s.audioSender = videoSender, audioSender
	s.mu.Unlock()

	// Drain RTCP so interceptors keep running.
	go drainRTCP(videoSender)
	go drainRTCP(audioSender)

	s.attachLocalWithRetry(video)
	return nil
}

// attachLocalWithRetry attaches the published track to the render
// surface. The surface may not exist at publish time, so one retry
// runs after a fixed delay; beyond that a manual re-attach is the
// fallback.
func (s *Session) attachLocalWithRetry(track webrtc.TrackLocal) {
	if s.sink == nil {
		return
	}
	if s.sink.Ready() {
		s.sink.AttachLocal(track)
		return
	}

	time.AfterFunc(attachRetryDelay, func() {
		if s.isClosed() {
			return
		}
		if s.sink.Ready() {
			s.sink.AttachLocal(track)
			return
		}
		s.surface(&ConnectionError{Op: "attach", Cause: "render surface not ready"})
	})
}

// attachSubscribed attaches any remote video track that is already
// subscribed at connect time.
func (s *Session) attachSubscribed() {
	for _, receiver := range s.pc.GetReceivers() {
		track := receiver.Track()
		if track != nil && track.Kind() == webrtc.RTPCodecTypeVideo {
			s.attachRemote(track)
		}
	}
}

func (s *Session) attachRemote(track *webrtc.TrackRemote) {
	if s.sink == nil || track.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}
	if s.sink.Ready() {
		s.sink.Attach(track)
		return
	}
	time.AfterFunc(attachRetryDelay, func() {
		if s.isClosed() {
			return
		}
		if s.sink.Ready() {
			s.sink.Attach(track)
			return
		}
		s.surface(&ConnectionError{Op: "attach", Cause: "render surface not ready"})
	})
}

// ReAttach is the manual fallback after the single timed retry failed.
func (s *Session) ReAttach() {
	s.mu.Lock()
	video := s.videoTrack
	s.mu.Unlock()

	if video != nil {
		s.attachLocalWithRetry(video)
		return
	}
	s.attachSubscribed()
}

func (s *Session) negotiate(ctx context.Context, signaler Signaler) error {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return newConnectionError("connect", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return newConnectionError("connect", err)
	}

	answerSDP, err := signaler.Negotiate(ctx, offer.SDP)
	if err != nil {
		return newConnectionError("connect", err)
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return newConnectionError("connect", err)
	}
	return nil
}

// SetMicrophone enables or disables the published audio track.
func (s *Session) SetMicrophone(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLocked(s.audioSender, s.audioTrack, enabled)
}

// SetCamera enables or disables the published video track.
func (s *Session) SetCamera(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLocked(s.videoSender, s.videoTrack, enabled)
}

func (s *Session) toggleLocked(sender *webrtc.RTPSender, track webrtc.TrackLocal, enabled bool) error {
	if sender == nil {
		return &ConnectionError{Op: "publish", Cause: "no published track"}
	}
	if enabled {
		if err := sender.ReplaceTrack(track); err != nil {
			return newConnectionError("publish", err)
		}
		return nil
	}
	if err := sender.ReplaceTrack(nil); err != nil {
		return newConnectionError("publish", err)
	}
	return nil
}

// Disconnect closes the session on the local client's request. The
// resulting connection-state change is suppressed, not surfaced.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.localClose = true
	s.mu.Unlock()
	s.teardown()
}

// handleDrop surfaces an underlying session drop unless the local
// client initiated it.
func (s *Session) handleDrop(state webrtc.PeerConnectionState) {
	s.mu.Lock()
	local := s.localClose
	s.mu.Unlock()

	if !local {
		s.surface(&ConnectionError{Op: "connect", Cause: "connection " + state.String()})
	}
	s.teardown()
}

// surface reports an error through the session callback. The callback
// fires from pion goroutines and timers, so the read is synchronized
// against teardown clearing it.
func (s *Session) surface(err error) {
	s.mu.Lock()
	cb := s.onError
	s.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// teardown releases capture, detaches the render surface, and closes
// the peer connection. Every exit path funnels here; only the first
// call does work.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.audioSender, s.videoSender = nil, nil
		s.audioTrack, s.videoTrack = nil, nil
		s.onError = nil
		s.mu.Unlock()

		if s.sink != nil {
			s.sink.Detach()
		}
		if err := s.pc.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			log.L().Debug().Err(err).Msg("peer connection close")
		}
	})
}

func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
