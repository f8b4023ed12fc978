package telemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"fleetboard-backend/internal/mapstate"
)

// Client polls the upstream telemetry provider for the whole fleet's
// latest positions and pushes the normalized batch into a sink.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	interval   time.Duration
}

// Sink receives each normalized batch. The map controller satisfies it.
type Sink interface {
	UpdateVehicles(records []mapstate.PositionRecord)
}

// NewClient builds a telemetry client from the environment.
// TELEMETRY_URL is required, TELEMETRY_TOKEN is sent as a bearer token
// when set.
func NewClient() (*Client, error) {
	baseURL := os.Getenv("TELEMETRY_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("TELEMETRY_URL environment variable is required")
	}

	interval := 15 * time.Second
	if raw := os.Getenv("TELEMETRY_POLL_SECONDS"); raw != "" {
		if parsed, err := time.ParseDuration(raw + "s"); err == nil && parsed > 0 {
			interval = parsed
		}
	}

	return &Client{
		baseURL: baseURL,
		token:   os.Getenv("TELEMETRY_TOKEN"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		interval: interval,
	}, nil
}

// FetchPositions performs one poll against the provider and returns the
// normalized records.
func (c *Client) FetchPositions(ctx context.Context) ([]mapstate.PositionRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	records, err := NormalizeBatch(body)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}

	return records, nil
}

// Run polls the provider on the configured interval until the context
// is cancelled. Failed polls are logged and retried on the next tick,
// the previous snapshot stays on the map meanwhile.
func (c *Client) Run(ctx context.Context, sink Sink) {
	log.Printf("📡 Telemetry poller started (every %s)", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.pollOnce(ctx, sink)

	for {
		select {
		case <-ctx.Done():
			log.Println("📡 Telemetry poller stopped")
			return
		case <-ticker.C:
			c.pollOnce(ctx, sink)
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, sink Sink) {
	records, err := c.FetchPositions(ctx)
	if err != nil {
		log.Printf("⚠️  Telemetry poll failed: %v", err)
		return
	}
	sink.UpdateVehicles(records)
}
