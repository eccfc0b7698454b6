package whep

import (
	"errors"
	"io"
	"sync"
	"time"

	"vigilcam/internal/core/domain"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const rtpReadBufferSize = 1500

// mediaMonitor drains inbound RTP and RTCP for a session and keeps running
// health counters. Draining is mandatory: an unread receiver stalls the
// interceptor chain and eventually the whole connection.
type mediaMonitor struct {
	logger *zap.SugaredLogger

	mu      sync.Mutex
	current domain.InboundMediaStats
}

func newMediaMonitor(logger *zap.SugaredLogger) *mediaMonitor {
	return &mediaMonitor{logger: logger}
}

// watch starts the read loops for one attached track. The loops exit when the
// peer connection closes.
func (m *mediaMonitor) watch(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	go m.readRTP(track)
	go m.readRTCP(receiver)
}

func (m *mediaMonitor) stats() domain.InboundMediaStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mediaMonitor) readRTP(track *webrtc.TrackRemote) {
	buf := make([]byte, rtpReadBufferSize)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logger.Debugw("RTP read loop ended", "error", err, "kind", track.Kind().String())
			}
			return
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			m.logger.Debugw("dropping malformed RTP packet", "error", err)
			continue
		}

		m.mu.Lock()
		m.current.Packets++
		m.current.Bytes += uint64(n)
		m.current.LastPacketAt = time.Now()
		m.mu.Unlock()
	}
}

func (m *mediaMonitor) readRTCP(receiver *webrtc.RTPReceiver) {
	for {
		packets, _, err := receiver.ReadRTCP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logger.Debugw("RTCP read loop ended", "error", err)
			}
			return
		}

		for _, pkt := range packets {
			sr, ok := pkt.(*rtcp.SenderReport)
			if !ok {
				continue
			}
			m.mu.Lock()
			m.current.LastSenderSSRC = sr.SSRC
			m.current.LastReportAt = time.Now()
			m.mu.Unlock()
		}
	}
}
