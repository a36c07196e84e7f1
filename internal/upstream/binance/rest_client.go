package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
)

type RestClient struct {
	snapshotURL string
	limit       int
	client      *http.Client
}

func NewRestClient(snapshotURL string, limit int, client *http.Client) *RestClient {
	return &RestClient{
		snapshotURL: snapshotURL,
		limit:       limit,
		client:      client,
	}
}

// GetSnapshot fetches the market depth snapshot for a symbol.
func (c *RestClient) GetSnapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	u, err := url.Parse(c.snapshotURL)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot url: %w", err)
	}

	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(c.limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create snapshot request: %w", err)
	}

	logger.GetLogger().WithFields(logger.Fields{"symbol": symbol}).Info("Sending rest request to get market depth")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(sourceName, "depth").Inc()

		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.GetLogger().WithError(err).Error("Error on closing response")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrorsTotal.WithLabelValues(sourceName, "depth").Inc()

		return nil, fmt.Errorf("get snapshot: unexpected status %d", resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return &snapshot, nil
}
