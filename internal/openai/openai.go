package openai

import (
	"context"
	"errors"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultModel = goopenai.GPT4oMini

// Client is a classify.Backend on top of the OpenAI chat completions API.
type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// NewClient creates a client. baseURL is only set for compatible gateways
// and tests; empty means the public API.
func NewClient(apiKey, baseURL, model string, temperature float32) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete requests a JSON object answer for one system+user exchange.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxCompletionTokens: 400,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
