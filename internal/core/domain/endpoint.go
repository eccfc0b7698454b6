package domain

import (
	"net/url"
	"strings"
)

type TransportKind string

const (
	// TransportSegmentedHTTP plays the endpoint as an HLS playlist.
	TransportSegmentedHTTP TransportKind = "segmented_http"
	// TransportRealTimeSignaling negotiates a WebRTC session via WHEP.
	TransportRealTimeSignaling TransportKind = "realtime_signaling"
	// TransportEmbedded renders the endpoint inside an embedded browser surface.
	TransportEmbedded TransportKind = "embedded"
)

// realTimeGatewayPort is the port the real-time media gateway listens on
// (MediaMTX WHEP convention used by the camera hosts).
const realTimeGatewayPort = "8889"

// whepPathSuffix is the signaling sub-resource appended to the endpoint URL.
const whepPathSuffix = "/whep"

// StreamEndpoint is an immutable stream target: the configured URL plus the
// transport kind derived from it. Built once per session and never mutated.
type StreamEndpoint struct {
	URL       string
	Transport TransportKind
}

// NewStreamEndpoint classifies rawURL and freezes the result. The transport
// kind is stable for the lifetime of the session.
func NewStreamEndpoint(rawURL string) StreamEndpoint {
	return NewStreamEndpointWith(rawURL, RealtimeSupported())
}

// NewStreamEndpointWith is NewStreamEndpoint with an explicit runtime
// capability flag, for environments without native WebRTC support.
func NewStreamEndpointWith(rawURL string, realtimeSupported bool) StreamEndpoint {
	return StreamEndpoint{
		URL:       rawURL,
		Transport: ClassifyWith(rawURL, realtimeSupported),
	}
}

// SignalingURL derives the WHEP signaling sub-resource from the endpoint URL:
// trailing separator normalized, signaling path segment appended.
func (e StreamEndpoint) SignalingURL() string {
	return strings.TrimRight(e.URL, "/") + whepPathSuffix
}

// Classify decides which transport kind applies to a stream URL. It is total:
// any input yields exactly one kind and unrecognized URLs fall back to the
// embedded transport.
func Classify(rawURL string) TransportKind {
	return ClassifyWith(rawURL, RealtimeSupported())
}

// ClassifyWith classifies with an explicit real-time capability flag.
func ClassifyWith(rawURL string, realtimeSupported bool) TransportKind {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return TransportEmbedded
	}

	path := strings.ToLower(u.Path)
	if strings.HasSuffix(path, ".m3u8") || strings.Contains(path, "/hls/") {
		return TransportSegmentedHTTP
	}

	if realtimeSupported && u.Port() == realTimeGatewayPort {
		return TransportRealTimeSignaling
	}

	return TransportEmbedded
}

// RealtimeSupported reports whether the runtime can drive native real-time
// media primitives. The WebRTC stack is compiled in, so this is always true
// here; it exists so classification can mirror restricted runtimes in tests.
func RealtimeSupported() bool {
	return true
}
