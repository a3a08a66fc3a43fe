package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"studysync/internal/domain"
)

// Client generates text with Gemini. Plain prompts go through the eino chat
// model; prompts with an image are sent as inline data through genai directly.
type Client struct {
	genai *genai.Client
	chat  model.BaseChatModel
}

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini generation: api key is required")
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	chat, err := geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  cfg.DefaultModel,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini chat model: %w", err)
	}
	return &Client{genai: client, chat: chat}, nil
}

func (c *Client) Generate(ctx context.Context, modelName string, prompt domain.Prompt) (string, error) {
	if prompt.Image != nil {
		return c.generateWithImage(ctx, modelName, prompt)
	}
	msg, err := c.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt.Text)}, model.WithModel(modelName))
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	if msg == nil {
		return "", errors.New("gemini chat: empty response")
	}
	return strings.TrimSpace(msg.Content), nil
}

func (c *Client) generateWithImage(ctx context.Context, modelName string, prompt domain.Prompt) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompt.Text),
		genai.NewPartFromBytes(prompt.Image.Data, prompt.Image.MimeType),
	}, genai.RoleUser)
	resp, err := c.genai.Models.GenerateContent(ctx, modelName, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
