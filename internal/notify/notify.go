// Package notify fans registration events out to an external push gateway.
// The fan-out is stateless fire-and-forget HTTP: a failed delivery is logged
// and dropped, never fed back into the registration pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"conbadge/internal/model"
)

// Notifier is the notification surface the registration service sees.
type Notifier interface {
	BadgeRegistered(ctx context.Context, badge model.BadgeRecord)
}

// New builds a notifier posting to the given endpoint. When no endpoint is
// configured, a noop implementation is returned.
func New(endpoint string, logger *slog.Logger) Notifier {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return noopNotifier{}
	}
	return &httpNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type noopNotifier struct{}

func (noopNotifier) BadgeRegistered(context.Context, model.BadgeRecord) {}

type httpNotifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type event struct {
	Event   string `json:"event"`
	BadgeID string `json:"badgeId"`
	BadgeNo int    `json:"badgeNo"`
	Name    string `json:"name"`
}

func (n *httpNotifier) BadgeRegistered(ctx context.Context, badge model.BadgeRecord) {
	payload := event{
		Event:   "badge.registered",
		BadgeID: badge.ID,
		BadgeNo: badge.BadgeNo,
		Name:    badge.Name,
	}
	if err := n.send(ctx, payload); err != nil {
		n.logger.Warn("push notification failed",
			slog.Int("badge_no", badge.BadgeNo),
			slog.String("error", err.Error()),
		)
	}
}

func (n *httpNotifier) send(ctx context.Context, payload event) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %s", resp.Status)
	}
	return nil
}
