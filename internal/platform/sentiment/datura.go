// Package sentiment implements the tweet-search and LLM-scoring pipeline
// that produces a sentiment score for a subnet.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DaturaClient searches recent tweets through the Datura API.
type DaturaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDaturaClient creates a Datura search client.
//
// baseURL is the search endpoint, e.g. "https://apis.datura.ai/twitter".
// timeout bounds each HTTP request; non-positive values fall back to 30s.
func NewDaturaClient(baseURL, apiKey string, timeout time.Duration) *DaturaClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DaturaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// daturaSearchRequest is the Datura tweet search request body.
type daturaSearchRequest struct {
	Query string `json:"query"`
	Count int    `json:"count"`
	Sort  string `json:"sort"`
}

// daturaTweet is one search hit. Only the text is used for scoring.
type daturaTweet struct {
	Text string `json:"text"`
}

// SearchTweets returns the text of up to count recent tweets matching the
// query. An empty result is not an error.
func (c *DaturaClient) SearchTweets(ctx context.Context, query string, count int) ([]string, error) {
	reqBody := daturaSearchRequest{
		Query: query,
		Count: count,
		Sort:  "Latest",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("datura: marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("datura: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datura: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("datura: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datura: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var tweets []daturaTweet
	if err := json.Unmarshal(body, &tweets); err != nil {
		return nil, fmt.Errorf("datura: decode search response: %w", err)
	}

	texts := make([]string, 0, len(tweets))
	for _, t := range tweets {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		texts = append(texts, t.Text)
	}
	return texts, nil
}
