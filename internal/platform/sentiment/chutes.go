package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// scorePrompt instructs the model to reply with a bare integer.
const scorePrompt = "Analyze the overall sentiment of the following tweets about the Bittensor subnet. " +
	"Respond with a single integer between -100 (extremely negative) and 100 (extremely positive) " +
	"and nothing else.\n\nTweets:\n"

// ChutesClient scores tweet batches through a Chutes-hosted LLM
// chat-completion endpoint.
type ChutesClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewChutesClient creates a Chutes scoring client.
//
// baseURL is the chat completions endpoint, e.g.
// "https://llm.chutes.ai/v1/chat/completions". timeout bounds each HTTP
// request; non-positive values fall back to 30s.
func NewChutesClient(baseURL, apiKey, model string, timeout time.Duration) *ChutesClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChutesClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chatRequest is the OpenAI-compatible chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI-compatible chat completion response body.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ScoreTweets asks the model for a sentiment score over the given tweets.
// The result is clamped to [-100, 100].
func (c *ChutesClient) ScoreTweets(ctx context.Context, tweets []string) (int, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: scorePrompt + strings.Join(tweets, "\n---\n")},
		},
		MaxTokens:   10,
		Temperature: 0,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("chutes: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("chutes: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("chutes: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("chutes: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("chutes: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return 0, fmt.Errorf("chutes: decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return 0, fmt.Errorf("chutes: response contains no choices")
	}

	score, err := parseScore(chat.Choices[0].Message.Content)
	if err != nil {
		return 0, fmt.Errorf("chutes: %w", err)
	}
	return score, nil
}

// parseScore extracts the first signed integer from the model output and
// clamps it to [-100, 100].
func parseScore(s string) (int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r != '-' && r != '+' && (r < '0' || r > '9')
	})

	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		if n > 100 {
			n = 100
		}
		if n < -100 {
			n = -100
		}
		return n, nil
	}
	return 0, fmt.Errorf("no integer score in model output %q", s)
}
