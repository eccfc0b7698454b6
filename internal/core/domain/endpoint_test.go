package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want TransportKind
	}{
		{
			name: "m3u8 playlist",
			url:  "http://example.com/stream.m3u8",
			want: TransportSegmentedHTTP,
		},
		{
			name: "m3u8 uppercase extension",
			url:  "http://example.com/STREAM.M3U8",
			want: TransportSegmentedHTTP,
		},
		{
			name: "hls path segment",
			url:  "http://example.com/hls/live",
			want: TransportSegmentedHTTP,
		},
		{
			name: "realtime gateway port",
			url:  "http://raspberrypi.tail56d975.ts.net:8889/cam/",
			want: TransportRealTimeSignaling,
		},
		{
			name: "gateway port without trailing slash",
			url:  "http://camhost:8889/cam",
			want: TransportRealTimeSignaling,
		},
		{
			name: "hls wins over gateway port",
			url:  "http://camhost:8889/hls/cam",
			want: TransportSegmentedHTTP,
		},
		{
			name: "plain page",
			url:  "http://example.com/viewer",
			want: TransportEmbedded,
		},
		{
			name: "other port",
			url:  "http://camhost:8080/cam/",
			want: TransportEmbedded,
		},
		{
			name: "unparseable url",
			url:  "http://[::1:bad",
			want: TransportEmbedded,
		},
		{
			name: "missing host",
			url:  "not-a-url",
			want: TransportEmbedded,
		},
		{
			name: "empty string",
			url:  "",
			want: TransportEmbedded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.url))
		})
	}
}

func TestClassifyWith_RealtimeUnsupported(t *testing.T) {
	// Without native media support the gateway port means nothing and the
	// endpoint falls back to the embedded viewer.
	assert.Equal(t, TransportEmbedded, ClassifyWith("http://camhost:8889/cam/", false))
	// Segmented HTTP does not depend on the capability flag.
	assert.Equal(t, TransportSegmentedHTTP, ClassifyWith("http://camhost:8889/hls/cam", false))
}

func TestSignalingURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "trailing slash trimmed",
			url:  "http://camhost:8889/cam/",
			want: "http://camhost:8889/cam/whep",
		},
		{
			name: "no trailing slash",
			url:  "http://camhost:8889/cam",
			want: "http://camhost:8889/cam/whep",
		},
		{
			name: "multiple trailing slashes collapse",
			url:  "http://camhost:8889/cam//",
			want: "http://camhost:8889/cam/whep",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewStreamEndpoint(tc.url)
			assert.Equal(t, tc.want, e.SignalingURL())
		})
	}
}

func TestNewStreamEndpoint_FreezesTransport(t *testing.T) {
	e := NewStreamEndpoint("http://camhost:8889/cam/")
	assert.Equal(t, TransportRealTimeSignaling, e.Transport)
	assert.Equal(t, "http://camhost:8889/cam/", e.URL)
}
