package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foxseedlab/multihost/internal/webhook"
)

const (
	requestTimeout = 10 * time.Second
	userAgent      = "multihost-webhook/1"
	maxErrorBody   = 512
)

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

func (s *HTTPSender) SendSessionSummary(ctx context.Context, payload webhook.SessionSummaryPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Session-ID", payload.SessionID)
	// One summary per session; receivers may dedupe retries on this key.
	req.Header.Set("Idempotency-Key", summaryIdempotencyKey(payload.SessionID))
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook returned status %d for session %s: %s", resp.StatusCode, payload.SessionID, bytes.TrimSpace(detail))
	}
	return nil
}

func summaryIdempotencyKey(sessionID string) string {
	return "session-summary:" + sessionID
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
