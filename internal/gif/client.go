package gif

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://tenor.googleapis.com/v2/search"

// searchResponse mirrors the slice of the Tenor v2 search payload we read.
type searchResponse struct {
	Results []struct {
		MediaFormats struct {
			Gif struct {
				URL string `json:"url"`
			} `json:"gif"`
		} `json:"media_formats"`
	} `json:"results"`
}

// Client fetches random gifs from the Tenor search API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a Tenor client.
func NewClient(apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: http.DefaultClient,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// WithBaseURL overrides the search endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Random picks one of the candidate queries uniformly at random and returns
// the gif URL of the first search result. Every call is a fresh network
// round-trip; failures are returned, never retried.
func (c *Client) Random(ctx context.Context, queries ...string) (string, error) {
	if len(queries) == 0 {
		return "", fmt.Errorf("no gif queries provided")
	}
	query := queries[rand.Intn(len(queries))]

	endpoint := fmt.Sprintf(
		"%s?q=%s&key=%s&random=true",
		c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build gif request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gif search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("gif search returned status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode gif response: %w", err)
	}

	if len(payload.Results) == 0 {
		return "", fmt.Errorf("no gif results for query %q", query)
	}

	gifURL := payload.Results[0].MediaFormats.Gif.URL
	if gifURL == "" {
		return "", fmt.Errorf("gif result for query %q has no media url", query)
	}

	c.logger.Debug().
		Str("query", query).
		Str("url", gifURL).
		Msg("gif fetched")

	return gifURL, nil
}

// Download fetches the media bytes behind a gif URL so it can be sent as a
// file attachment. The caller owns the returned reader.
func (c *Client) Download(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
