package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultTimeout bounds a single completion call. A timed-out call
// counts as one failed attempt for the caller's retry policy.
const DefaultTimeout = 60 * time.Second

// Chat is the text-generation boundary. The pipeline treats it as a
// fallible external oracle; implementations must be safe for concurrent
// use.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client calls an OpenAI-compatible chat-completion endpoint.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a completion client. apiBase overrides the endpoint
// for proxies and compatible services; timeout <= 0 selects the default.
func NewClient(apiKey, apiBase, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("API key not set, run: prlens config set apikey YOUR_API_KEY")
	}
	if model == "" {
		return nil, errors.New("model not set, run: prlens config set model MODEL_NAME")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		clientConfig.BaseURL = apiBase
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete sends one system+user exchange and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
