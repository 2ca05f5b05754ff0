package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
)

// Client defines listing search operations
type Client interface {
	Search(ctx context.Context, filter domain.SearchFilter) (*domain.SearchResult, error)
}

// HTTPClient calls the listing repository over HTTP
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new listing repository client
func NewHTTPClient(cfg config.SearchConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type searchResponse struct {
	Items []domain.Listing `json:"items"`
}

// Search queries the listing repository with the given filter
func (c *HTTPClient) Search(ctx context.Context, filter domain.SearchFilter) (*domain.SearchResult, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search filter: %w", err)
	}

	url := c.baseURL + "/v1/listings/search"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.SearchTimeout().WithError(err)
		}
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &domain.SearchResult{Items: decoded.Items}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
