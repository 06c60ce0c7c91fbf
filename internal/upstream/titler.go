package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultParams are the tunables sent alongside title and author. The
// provider may not know some of them and rejects the whole request when
// it sees an unknown name.
var defaultParams = map[string]any{
	"temperature":     0,
	"response_format": "text",
}

// TitleClient extracts a clean track title from a raw video title and
// channel name. It learns which request parameters the provider
// rejects: a first-time unknown-parameter error triggers one retry with
// that parameter stripped, and later requests strip it preemptively.
type TitleClient struct {
	baseURL string
	httpc   *http.Client

	mu          sync.Mutex
	unsupported map[string]struct{}
}

func NewTitleClient(baseURL string, timeout time.Duration) *TitleClient {
	return &TitleClient{
		baseURL:     baseURL,
		httpc:       &http.Client{Timeout: timeout},
		unsupported: make(map[string]struct{}),
	}
}

// Extract returns the track title, or ErrEmptyResult when the provider
// answered with nothing usable.
func (c *TitleClient) Extract(ctx context.Context, rawTitle, rawAuthor string) (string, error) {
	title, badParam, err := c.request(ctx, rawTitle, rawAuthor)
	if badParam != "" {
		c.learn(badParam)
		// One retry without the offending parameter; a second
		// rejection surfaces as-is.
		title, badParam, err = c.request(ctx, rawTitle, rawAuthor)
		if badParam != "" {
			c.learn(badParam)
			return "", fmt.Errorf("%w: parameter %q still rejected", ErrUnavailable, badParam)
		}
	}
	if err != nil {
		return "", err
	}
	if title == "" {
		return "", ErrEmptyResult
	}
	return title, nil
}

// request performs one call. badParam is non-empty when the provider
// rejected a parameter it does not know.
func (c *TitleClient) request(ctx context.Context, rawTitle, rawAuthor string) (title, badParam string, err error) {
	payload := map[string]any{
		"title":  rawTitle,
		"author": rawAuthor,
	}
	c.mu.Lock()
	for k, v := range defaultParams {
		if _, skip := c.unsupported[k]; !skip {
			payload[k] = v
		}
	}
	c.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Error().Err(err).Str("module", "upstream.titler").Msg("extract request failed")
		return "", "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", "", ErrRateLimited
	case http.StatusBadRequest:
		var provErr struct {
			Error string `json:"error"`
			Param string `json:"param"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&provErr); decErr == nil && provErr.Param != "" {
			log.Warn().Str("module", "upstream.titler").Str("param", provErr.Param).Msg("provider rejected parameter")
			return "", provErr.Param, nil
		}
		return "", "", fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	default:
		return "", "", fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var out struct {
		TrackTitle string `json:"track_title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return out.TrackTitle, "", nil
}

func (c *TitleClient) learn(param string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsupported[param] = struct{}{}
}
