package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPSink fire-and-forgets JSON event bodies to an external collector. A
// failure is logged and discarded; it never blocks or fails the data
// channel sink.
type HTTPSink struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSink builds an HTTPSink posting to baseURL with the given API key
// and per-request timeout.
func NewHTTPSink(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Send POSTs body as JSON to {baseURL}/events/{eventType}, tagging the
// request with the correlation id. Errors are logged, never returned to the
// caller: the sink is explicitly fire-and-forget.
func (s *HTTPSink) Send(ctx context.Context, eventType, correlationID string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Warn("http sink marshal failed", "event_type", eventType, "error", err)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/events/%s", s.baseURL, eventType)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		s.logger.Warn("http sink request build failed", "event_type", eventType, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("X-Correlation-Id", correlationID)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("http sink request failed", "event_type", eventType, "error", err)
		return
	}
	resp.Body.Close()
}
