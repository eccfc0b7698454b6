package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"

	"go.uber.org/zap"
)

// EmbeddedDriver is the fallback for endpoints with no recognized streaming
// transport. It verifies the page is reachable and hands the raw URL to the
// embedded viewer; any content the origin serves is acceptable.
type EmbeddedDriver struct {
	client *http.Client
	logger *zap.SugaredLogger
}

// NewEmbeddedDriver creates an embedded-page driver.
func NewEmbeddedDriver(timeout time.Duration, logger *zap.SugaredLogger) *EmbeddedDriver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EmbeddedDriver{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Start probes the page in the background and reports through cb.
func (d *EmbeddedDriver) Start(ctx context.Context, endpoint domain.StreamEndpoint, cb ports.AttemptCallbacks) (ports.AttemptHandle, error) {
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

func (d *EmbeddedDriver) probe(ctx context.Context, pageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
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

	d.logger.Debugw("embedded page probe succeeded", "url", pageURL)
	return nil
}
