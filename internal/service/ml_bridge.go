package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/internal/observability/metrics"
)

// Detector runs object detection on an encoded frame
type Detector interface {
	Detect(ctx context.Context, model string, frame []byte) ([]domain.Detection, error)
}

// detectResponse is the Python detection service payload
type detectResponse struct {
	Detections []domain.Detection `json:"detections"`
}

// MLBridge handles communication with the Python detection service
type MLBridge struct {
	serviceURL string
	httpClient *http.Client
	fallback   Detector
}

// NewMLBridge creates a new ML bridge. fallback answers when the service is
// unreachable; nil disables the fallback.
func NewMLBridge(serviceURL string, fallback Detector) *MLBridge {
	return &MLBridge{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		fallback: fallback,
	}
}

// Detect posts a JPEG frame to the detection service
func (b *MLBridge) Detect(ctx context.Context, model string, frame []byte) ([]domain.Detection, error) {
	start := time.Now()

	endpoint := fmt.Sprintf("%s/detect?model=%s", b.serviceURL, url.QueryEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("ml_bridge: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "image/jpeg")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return b.fallbackDetect(ctx, model, frame, start, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return b.fallbackDetect(ctx, model, frame, start, fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ObserveDetect(model, metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("ml_bridge: failed to decode response: %w", err)
	}

	metrics.ObserveDetect(model, metrics.ResultSuccess, time.Since(start))
	return payload.Detections, nil
}

func (b *MLBridge) fallbackDetect(ctx context.Context, model string, frame []byte, start time.Time, cause error) ([]domain.Detection, error) {
	if b.fallback == nil {
		metrics.ObserveDetect(model, metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("ml_bridge: detect failed: %w", cause)
	}
	metrics.ObserveDetect(model, metrics.ResultMock, time.Since(start))
	return b.fallback.Detect(ctx, model, frame)
}

// Health checks ML service connectivity
func (b *MLBridge) Health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml_bridge: health check returned status %d", resp.StatusCode)
	}

	return nil
}
