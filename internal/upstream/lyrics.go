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

// LyricsRecord is one provider candidate. SyncedLyrics carries
// timestamped lines when the provider has them.
type LyricsRecord struct {
	TrackName    string `json:"track_name"`
	ArtistName   string `json:"artist_name"`
	PlainLyrics  string `json:"plain_lyrics"`
	SyncedLyrics string `json:"synced_lyrics"`
}

type LyricsClient struct {
	baseURL string
	httpc   *http.Client
}

func NewLyricsClient(baseURL string, timeout time.Duration) *LyricsClient {
	return &LyricsClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Find fetches candidates and returns the best one. Preference:
// time-synced lyrics over plain lyrics over nothing; nil without error
// means the provider had no usable record.
func (c *LyricsClient) Find(ctx context.Context, trackTitle, artistName string) (*LyricsRecord, error) {
	q := url.Values{}
	q.Set("track_name", trackTitle)
	if artistName != "" {
		q.Set("artist_name", artistName)
	}
	u := fmt.Sprintf("%s/search?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Error().Err(err).Str("module", "upstream.lyrics").Msg("lyrics request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var records []LyricsRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	return bestRecord(records), nil
}

func bestRecord(records []LyricsRecord) *LyricsRecord {
	var plain *LyricsRecord
	for i := range records {
		r := &records[i]
		if r.SyncedLyrics != "" {
			return r
		}
		if plain == nil && r.PlainLyrics != "" {
			plain = r
		}
	}
	return plain
}
