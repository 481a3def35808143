// Package inference wraps the language-model collaborator behind a small
// streaming interface so the ingestor can be tested without network access.
package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatMessage is the transport shape sent to the model.
type ChatMessage struct {
	Role    string
	Content string
}

// Request carries the full conversation plus the template's system prompt.
type Request struct {
	SystemPrompt string
	Messages     []ChatMessage
}

// Stream yields text chunks; Recv returns io.EOF when the model is done.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Streamer starts a completion stream for a request.
type Streamer interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Options configures the OpenAI-compatible client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api   *openai.Client
	model string
	temp  float32
}

// NewClient constructs the client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("inference: api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	temp := opts.Temperature
	if temp == 0 {
		temp = 0.7
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model, temp: temp}, nil
}

// Stream opens a chunked completion stream for the conversation.
func (c *Client) Stream(ctx context.Context, req Request) (Stream, error) {
	history := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		history = append(history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		history = append(history, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temp,
		Messages:    history,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{inner: stream}, nil
}

type openaiStream struct {
	inner *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openaiStream) Close() error {
	s.inner.Close()
	return nil
}
