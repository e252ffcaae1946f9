package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsdesk/app/retry"
)

const systemPrompt = "You are the editor of a news portal. Rewrite the headline " +
	"and body you are given, keeping every fact, date, number and name, but using " +
	"your own wording. Output the headline first, then an empty line, then the body. " +
	"Plain text only, no markup."

// Client calls an OpenAI-compatible chat-completions endpoint to paraphrase
// an article. Callers degrade to Fallback when Rewrite returns an error.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
	timeout    time.Duration
	policy     retry.Policy
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func NewClient(httpClient *http.Client, apiURL, apiKey, model string, timeout time.Duration, policy retry.Policy) *Client {
	return &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		policy:     policy,
	}
}

// Rewrite sends title and body to the model and returns the cleaned result,
// retrying transient failures with the shared policy. Any remaining transport
// failure, non-200 status, malformed response or empty choice list is an
// error; the caller falls back to the original text.
func (c *Client) Rewrite(ctx context.Context, title, body string) (string, error) {
	var text string
	err := c.policy.Do(ctx, "rewrite", func() error {
		var callErr error
		text, callErr = c.call(ctx, title, body)
		return callErr
	})
	return text, err
}

func (c *Client) call(ctx context.Context, title, body string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Headline: %s\n\nBody: %s", title, body)

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		c.apiURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("rewrite request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("rewrite API returned %d: %s", resp.StatusCode, string(data))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode rewrite response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("rewrite API returned no choices")
	}

	text := CleanText(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("rewrite API returned empty content")
	}

	return text, nil
}
