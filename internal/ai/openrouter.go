package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenRouterOptions configures the shared parts of a set of OpenRouter
// backends; only the model name differs between them.
type OpenRouterOptions struct {
	BaseURL string
	APIKey  string
	Referer string
	Title   string
	Client  *http.Client
}

// OpenRouterBackend adapts one OpenRouter model to the Backend contract.
type OpenRouterBackend struct {
	model string
	opts  OpenRouterOptions
}

// NewOpenRouterBackends builds one backend per model, in the given
// (preference) order.
func NewOpenRouterBackends(opts OpenRouterOptions, models ...string) []Backend {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	backends := make([]Backend, 0, len(models))
	for _, model := range models {
		backends = append(backends, &OpenRouterBackend{model: model, opts: opts})
	}
	return backends
}

func (b *OpenRouterBackend) ID() string {
	return b.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke posts a chat completion and reduces the response to an Outcome.
// Quota (429) and server-side errors are recoverable; request-level
// rejections (400/401/403) are fatal because every model behind the same
// gateway would reject the request identically.
func (b *OpenRouterBackend) Invoke(ctx context.Context, req Request) Outcome {
	payload := chatRequest{
		Model:       b.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Fatal(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Fatal(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.opts.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if b.opts.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", b.opts.Referer)
	}
	if b.opts.Title != "" {
		httpReq.Header.Set("X-Title", b.opts.Title)
	}

	resp, err := b.opts.Client.Do(httpReq)
	if err != nil {
		return Recoverable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// handled below
	case resp.StatusCode == http.StatusTooManyRequests:
		return Recoverable(fmt.Errorf("rate limited (429)"))
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return Fatal(fmt.Errorf("request rejected (%d)", resp.StatusCode))
	default:
		return Recoverable(fmt.Errorf("status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Recoverable(err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Recoverable(err)
	}
	if len(parsed.Choices) == 0 {
		return Recoverable(errors.New("response has no choices"))
	}

	content := parsed.Choices[0].Message.Content
	if req.WantJSON {
		content, err = extractJSON(content)
		if err != nil {
			// One model producing chatter says nothing about the
			// others' ability to follow the format.
			return Recoverable(err)
		}
	}
	return Success(content)
}

// extractJSON pulls the outermost {...} object out of a chat reply,
// tolerating markdown fences and prose around it.
func extractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", errors.New("reply contains no JSON object")
	}
	candidate := content[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", errors.New("reply contains malformed JSON")
	}
	return candidate, nil
}
