package livestream

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// FrameSink receives already-encoded H.264 access units for live delivery,
// independent of the file-sequencing path — the capture pipeline pushes
// into both a Sequencer and a Session's sink concurrently.
type FrameSink interface {
	PushSample(payload []byte, duration time.Duration) error
}

var signalingUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// signalMessage is the JSON envelope exchanged over the websocket signaling
// channel, mirroring the teacher's session_webrtc.go offer/answer/candidate
// framing.
type signalMessage struct {
	Type      string                   `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// Session is one live viewer's WebRTC peer connection: a single H.264
// video track, RTCP receiver-report-driven bitrate adaptation, and a
// websocket signaling exchange — grounded on the teacher's session.go /
// session_webrtc.go pairing (one Session struct per connected viewer,
// PeerConnection + local track + bitrate controller).
type Session struct {
	pc       *webrtc.PeerConnection
	track    *webrtc.TrackLocalStaticSample
	bitrate  *AdaptiveBitrate
	log      *slog.Logger
	closed   chan struct{}
}

// NewSession creates a PeerConnection with a single H.264 video track and
// starts its RTCP receiver-report pump.
func NewSession(limits BitrateLimits, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		return nil, fmt.Errorf("livestream: new peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"video", "capture",
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("livestream: new track: %w", err)
	}

	sender, err := pc.AddTrack(track)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("livestream: add track: %w", err)
	}

	s := &Session{
		pc:      pc,
		track:   track,
		bitrate: NewAdaptiveBitrate(limits),
		log:     log,
		closed:  make(chan struct{}),
	}
	go s.pumpRTCP(sender)
	return s, nil
}

// pumpRTCP reads RTCP packets from sender (receiver reports from the
// remote viewer) and feeds observed loss fractions into the bitrate
// controller, the same feedback loop the teacher's adaptive.go consumes.
func (s *Session) pumpRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		n, _, err := sender.Read(buf)
		if err != nil {
			return
		}
		packets, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		for _, pkt := range packets {
			if rr, ok := pkt.(*rtcp.ReceiverReport); ok {
				for _, report := range rr.Reports {
					s.bitrate.OnReceiverReport(report.FractionLost)
				}
			}
		}
	}
}

// Bitrate returns the session's adaptive bitrate controller, so the
// encoder feeding PushSample can query the current target.
func (s *Session) Bitrate() *AdaptiveBitrate { return s.bitrate }

// PushSample implements FrameSink: writes one encoded access unit to the
// video track.
func (s *Session) PushSample(payload []byte, duration time.Duration) error {
	return s.track.WriteSample(media.Sample{Data: payload, Duration: duration})
}

// Close tears down the peer connection.
func (s *Session) Close() error {
	close(s.closed)
	return s.pc.Close()
}

// HandleSignaling upgrades r to a websocket and drives the offer/answer
// exchange: reads the viewer's offer, sets it as the remote description,
// creates and sends an answer, and relays ICE candidates both ways.
func (s *Session) HandleSignaling(w http.ResponseWriter, r *http.Request) error {
	conn, err := signalingUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("livestream: upgrade: %w", err)
	}
	defer conn.Close()

	s.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		_ = conn.WriteJSON(signalMessage{Type: "candidate", Candidate: &init})
	})

	var offer signalMessage
	if err := conn.ReadJSON(&offer); err != nil {
		return fmt.Errorf("livestream: read offer: %w", err)
	}
	if offer.Type != "offer" {
		return fmt.Errorf("livestream: expected offer, got %q", offer.Type)
	}
	if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		return fmt.Errorf("livestream: set remote description: %w", err)
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("livestream: create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("livestream: set local description: %w", err)
	}
	if err := conn.WriteJSON(signalMessage{Type: "answer", SDP: answer.SDP}); err != nil {
		return fmt.Errorf("livestream: write answer: %w", err)
	}

	for {
		var msg signalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil
		}
		if msg.Type == "candidate" && msg.Candidate != nil {
			if err := s.pc.AddICECandidate(*msg.Candidate); err != nil {
				s.log.Warn("add ice candidate failed", slog.String("error", err.Error()))
			}
		}
	}
}
