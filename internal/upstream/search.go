package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// VideoResult mirrors the metadata provider's record; DurationDisplay
// is whatever human-readable form the provider returns.
type VideoResult struct {
	VideoRef        string `json:"video_ref"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ThumbnailRef    string `json:"thumbnail_ref"`
	DurationDisplay string `json:"duration"`
}

type SearchClient struct {
	baseURL string
	httpc   *http.Client
}

func NewSearchClient(baseURL string, timeout time.Duration) *SearchClient {
	return &SearchClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Find queries the video-metadata provider.
func (c *SearchClient) Find(ctx context.Context, query string) ([]VideoResult, error) {
	u := fmt.Sprintf("%s/videos?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Error().Err(err).Str("module", "upstream.search").Msg("search request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var results []VideoResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return results, nil
}
