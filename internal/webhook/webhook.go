// Package webhook notifies external systems when a clip task reaches a
// terminal state. Delivery is best effort: failures are logged and
// retried a few times, but never fail the task itself.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/logging"
	"github.com/Anning01/playlet-clip/pkg/models"
)

var retryDelays = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

// Notifier delivers task event payloads to the configured URLs.
type Notifier struct {
	urls       []string
	secret     string
	maxRetries int
	client     *http.Client
	logger     *logging.Logger
}

// NewNotifier creates a notifier from configuration. With no URLs
// configured every Notify call is a no-op.
func NewNotifier(cfg config.WebhookConfig, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if maxRetries > len(retryDelays) {
		maxRetries = len(retryDelays)
	}

	return &Notifier{
		urls:       cfg.URLs,
		secret:     cfg.Secret,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NotifyTaskCompleted reports a successful run.
func (n *Notifier) NotifyTaskCompleted(ctx context.Context, task *models.Task, result *models.ProcessResult) {
	n.notify(ctx, models.WebhookEventTaskCompleted, models.TaskEvent{
		TaskID:     task.ID,
		Status:     string(models.StatusCompleted),
		Style:      task.Style,
		VideoPath:  task.VideoPath,
		OutputPath: result.OutputPath,
		Duration:   result.Duration,
	})
}

// NotifyTaskFailed reports a failed run.
func (n *Notifier) NotifyTaskFailed(ctx context.Context, task *models.Task, result *models.ProcessResult) {
	n.notify(ctx, models.WebhookEventTaskFailed, models.TaskEvent{
		TaskID:    task.ID,
		Status:    string(models.StatusFailed),
		Style:     task.Style,
		VideoPath: task.VideoPath,
		Error:     result.ErrorMessage,
		Duration:  result.Duration,
	})
}

func (n *Notifier) notify(ctx context.Context, event string, data interface{}) {
	if len(n.urls) == 0 {
		return
	}

	payload, err := json.Marshal(models.WebhookEvent{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		n.logger.WithError(err).Error("failed to marshal webhook payload")
		return
	}

	for _, url := range n.urls {
		n.deliver(ctx, url, event, payload)
	}
}

// deliver posts the payload to one URL, retrying transient failures
// with short in-process backoff.
func (n *Notifier) deliver(ctx context.Context, url, event string, payload []byte) {
	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelays[attempt-1]
			select {
			case <-ctx.Done():
				n.logger.Warnf("webhook delivery to %s abandoned: %v", url, ctx.Err())
				return
			case <-time.After(delay):
			}
		}

		lastErr = n.post(ctx, url, event, payload)
		if lastErr == nil {
			n.logger.Debugf("webhook %s delivered to %s", event, url)
			return
		}
	}

	n.logger.WithError(lastErr).Warnf("webhook %s delivery to %s failed after %d attempts", event, url, n.maxRetries+1)
}

func (n *Notifier) post(ctx context.Context, url, event string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Playlet-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", signature(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// signature generates the HMAC-SHA256 signature for a webhook payload
func signature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
