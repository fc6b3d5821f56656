// Package openai adapts an OpenAI-compatible endpoint (OpenAI itself or a
// self-hosted vLLM server) for embeddings and chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultEmbeddingDimensions = 1024
	DefaultChatModel           = "gpt-5"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when the provider returns a vector of an
	// unexpected size
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when no API key is configured
	ErrNoAPIKey = errors.New("openai API key not set")
	// ErrEmptyCompletion is returned when the model returns no choices
	ErrEmptyCompletion = errors.New("completion returned no choices")
)

// API is the subset of the provider used by Client.
type API interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
	CreateChatCompletion(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Client generates embeddings and completions with dimension checks.
type Client struct {
	api        API
	dimensions int
}

// Adapter talks to the provider through go-openai.
type Adapter struct {
	client     *openai.Client
	embedModel openai.EmbeddingModel
	chatModel  string
	dimensions int
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
}

func NewAdapter(cfg Config) *Adapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Adapter{
		client:     openai.NewClientWithConfig(clientCfg),
		embedModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		chatModel:  cfg.ChatModel,
		dimensions: cfg.EmbeddingDimensions,
	}
}

// CreateEmbeddings calls the embeddings endpoint, asking for the configured
// dimensions.
func (a *Adapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      a.embedModel,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion sends an optional system message and one user message.
func (a *Adapter) CreateChatCompletion(ctx context.Context, systemPrompt, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.chatModel,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// NewClient creates a client from cfg, filling defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	return &Client{api: NewAdapter(cfg), dimensions: cfg.EmbeddingDimensions}, nil
}

// Dimensions returns the embedding size the client enforces.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}
	return embedding, nil
}

// Complete returns the model's answer to prompt.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}
	answer, err := c.api.CreateChatCompletion(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	return answer, nil
}
