package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"

	"go.uber.org/zap"
)

const playlistHeader = "#EXTM3U"

// HLSDriver probes a segmented-HTTP playlist and hands the playlist URL to
// the player once the origin serves it. Segment download and decoding belong
// to the media player; the driver's job is to distinguish a reachable stream
// from a dead one so the supervisor can apply its retry budget.
type HLSDriver struct {
	client *http.Client
	logger *zap.SugaredLogger
}

// NewHLSDriver creates a segmented-HTTP driver.
func NewHLSDriver(timeout time.Duration, logger *zap.SugaredLogger) *HLSDriver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &HLSDriver{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Start probes the playlist in the background and reports through cb.
func (d *HLSDriver) Start(ctx context.Context, endpoint domain.StreamEndpoint, cb ports.AttemptCallbacks) (ports.AttemptHandle, error) {
	actx, cancel := context.WithCancel(ctx)
	go func() {
		if err := d.probe(actx, endpoint.URL); err != nil {
			if actx.Err() == nil {
				cb.OnFailure(err.Error())
			}
			return
		}
		if actx.Err() != nil {
			return
		}
		cb.OnReady(ports.MediaHandle{
			Transport:   endpoint.Transport,
			PlaybackURL: endpoint.URL,
		})
	}()
	return cancelHandle{cancel: cancel}, nil
}

func (d *HLSDriver) probe(ctx context.Context, playlistURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return fmt.Errorf("load error: %v", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("load error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("load error: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(body)), playlistHeader) {
		return fmt.Errorf("load error: response is not an HLS playlist")
	}

	d.logger.Debugw("playlist probe succeeded", "url", playlistURL, "bytes", len(body))
	return nil
}

// cancelHandle stops a probe-style attempt by cancelling its context.
type cancelHandle struct {
	cancel context.CancelFunc
}

func (h cancelHandle) Stop() { h.cancel() }
