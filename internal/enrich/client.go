// Package enrich calls the external vision/description service used to
// describe newly seen applications and classify screenshots.
package enrich

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Categories a screenshot classification may resolve to. The service is
// prompted with exactly this list; anything else is rejected.
var Categories = []string{
	"coding", "planning", "meetings", "browsing", "communication",
	"productivity", "entertainment", "system", "other",
}

const (
	messagesPath = "/v1/messages"
	apiVersion   = "2023-06-01"
	maxTokens    = 1024
)

// Client talks to an Anthropic-style messages API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	httpc   *http.Client
}

// NewClient builds a client. Every request runs under the given timeout on
// top of the caller's context.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		httpc:   &http.Client{},
	}
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

// Describe asks the service for a brief description of an application.
// When no display name is known the bundle identifier stands in for it.
func (c *Client) Describe(ctx context.Context, name, bundleID string) (string, error) {
	if name == "" {
		name = bundleID
	}

	prompt := fmt.Sprintf(
		"Provide a brief description for the application %q (bundle identifier: %s). Respond with just the description text.",
		name, bundleID,
	)
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("describe app %s: %w", name, err)
	}
	return text, nil
}

// Classification is the result of classifying one screenshot.
type Classification struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Classify sends a PNG screenshot to the vision endpoint and parses the
// category/description the model returns. The assistant turn is primed with
// an opening brace so the reply completes a JSON object.
func (c *Client) Classify(ctx context.Context, png []byte) (*Classification, error) {
	prompt := "Analyze this screenshot and categorize the activity into one of the following: " +
		strings.Join(Categories, ", ") +
		". Also, provide a brief description of what's happening on the screen. " +
		"Respond with a JSON object containing 'category' and 'description' fields."

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: "image/png",
							Data:      base64.StdEncoding.EncodeToString(png),
						},
					},
					{Type: "text", Text: prompt},
				},
			},
			{
				Role:    "assistant",
				Content: []contentBlock{{Type: "text", Text: "{"}},
			},
		},
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("classify screenshot: %w", err)
	}

	var result Classification
	if err := json.Unmarshal([]byte("{"+text), &result); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}
	if result.Category == "" || result.Description == "" {
		return nil, fmt.Errorf("classification response is missing required fields")
	}
	if !slices.Contains(Categories, result.Category) {
		return nil, fmt.Errorf("classification returned unknown category %q", result.Category)
	}
	return &result, nil
}

// complete posts a messages request and returns the first text block.
func (c *Client) complete(ctx context.Context, req messagesRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post messages: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("messages API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("response contains no text content")
}
