// Package metering reports billable events. Charges are fire-and-report: a
// failed charge is logged and reflected in the returned flag, never allowed
// to fail or roll back the work it accounts for.
package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sink accepts one named billable event.
type Sink interface {
	Charge(ctx context.Context, eventName string) error
}

// Charger wraps a Sink with the never-escalate policy.
type Charger struct {
	sink   Sink
	logger *slog.Logger
}

func NewCharger(sink Sink, logger *slog.Logger) *Charger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Charger{sink: sink, logger: logger}
}

// Charge reports whether the event was accepted. Failures are logged only.
func (c *Charger) Charge(ctx context.Context, eventName string) bool {
	if err := c.sink.Charge(ctx, eventName); err != nil {
		c.logger.Error("failed to charge event", "event", eventName, "error", err)
		return false
	}
	c.logger.Info("charged event", "event", eventName)
	return true
}

// LogSink records events without a billing backend. Used when no metering
// endpoint is configured and in dry runs.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Charge(ctx context.Context, eventName string) error {
	if s.Logger != nil {
		s.Logger.Debug("metering event (log-only sink)", "event", eventName)
	}
	return nil
}

// HTTPSink posts events to a metering endpoint as JSON.
type HTTPSink struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSink(endpoint string) *HTTPSink {
	return &HTTPSink{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) Charge(ctx context.Context, eventName string) error {
	payload, err := json.Marshal(map[string]string{"event_name": eventName})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post metering event: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("metering endpoint returned %s", resp.Status)
	}
	return nil
}
