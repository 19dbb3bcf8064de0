// Package llm is the structured composition/extraction capability, backed by
// an OpenAI-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/croftd/mailbridge-mcp/internal/config"
	"github.com/croftd/mailbridge-mcp/internal/model"
)

// Sentinel is the literal the extraction contract returns when no labeled
// draft template can be located in the supplied text.
const Sentinel = "NO_EMAIL_FOUND"

// ErrNoEmailFound indicates the extraction capability reported the sentinel.
var ErrNoEmailFound = errors.New("no email draft found in text")

const composePrompt = `You are an email drafting assistant. Turn the user's request into an email draft.
Respond with EXACTLY this template and nothing else:

To: <recipient email address>
Subject: <subject line>

<salutation>,

<body>

Best regards

Keep the "To:" and "Subject:" labels exactly as written, one per line, in that order.`

const extractPrompt = `You will be given the text of an assistant message that may contain an email draft with "To:" and "Subject:" labeled lines.
If the draft is present, respond with ONLY a JSON object {"to": "...", "subject": "...", "body": "..."} reproducing the draft content verbatim, preserving whitespace and line breaks in the body.
If no such draft can be located, respond with exactly ` + Sentinel + `.`

// Client calls the chat completions endpoint with typed payloads.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client from the LLM section of the process config.
func NewClient(cfg config.LLM) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Compose formats a free-form send request into the fixed labeled draft
// template the extraction phase parses.
func (c *Client) Compose(ctx context.Context, request string) (string, error) {
	text, err := c.chat(ctx, composePrompt, request)
	if err != nil {
		return "", fmt.Errorf("compose failed: %w", err)
	}
	return text, nil
}

// Extract re-parses a previously composed draft back into its structured
// form. Returns ErrNoEmailFound when the capability reports the sentinel.
func (c *Client) Extract(ctx context.Context, draftText string) (*model.DraftEmail, error) {
	text, err := c.chat(ctx, extractPrompt, draftText)
	if err != nil {
		return nil, fmt.Errorf("extract failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if strings.Contains(text, Sentinel) {
		return nil, ErrNoEmailFound
	}

	// Some models wrap JSON in markdown fences despite instructions.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var draft model.DraftEmail
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("extraction returned unparsable content: %w", err)
	}
	if draft.To == "" {
		return nil, ErrNoEmailFound
	}

	return &draft, nil
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   1000,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("json.Marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
