package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrFatal marks provider responses that retrying cannot fix: bad
// credentials or a malformed request. Callers check with errors.Is.
var ErrFatal = errors.New("search provider rejected request")

const defaultSerperURL = "https://google.serper.dev/places"

// SerperClient calls the Serper places endpoint. One POST per query.
type SerperClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:     apiKey,
		baseURL:    defaultSerperURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewSerperClientWithURL is used by tests to point at a local server.
func NewSerperClientWithURL(apiKey, baseURL string) *SerperClient {
	c := NewSerperClient(apiKey)
	c.baseURL = baseURL
	return c
}

func (c *SerperClient) Search(ctx context.Context, query string) ([]Place, error) {
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure: the caller treats this as retryable.
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrFatal, resp.StatusCode, bytes.TrimSpace(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Places []Place `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return decoded.Places, nil
}
