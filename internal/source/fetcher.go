package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gfduarte/mt5-tickdata/internal/model"
)

// BridgeError represents an error response from the terminal bridge.
type BridgeError struct {
	StatusCode int
	Body       []byte
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher fetches the latest tick for a symbol from the terminal
// bridge's REST endpoint (GET /ticks/{symbol}). Transient failures are not
// retried here; the next poll cycle fetches again.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher against the given bridge base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LatestTick implements TickFetcher.
func (f *HTTPFetcher) LatestTick(ctx context.Context, symbol string) (model.RawTick, error) {
	fullURL := f.baseURL + "/ticks/" + url.PathEscape(symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return model.RawTick{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return model.RawTick{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RawTick{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return model.RawTick{}, &BridgeError{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var raw model.RawTick
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.RawTick{}, fmt.Errorf("unmarshal tick: %w", err)
	}

	if raw.Symbol == "" {
		raw.Symbol = symbol
	}

	return raw, nil
}
