package llm

import (
	"context"
	"errors"

	"github.com/hocduong/assistant/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates a new OpenAI-compatible client
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Service is the language-model boundary: an ordered conversation context
// plus one new user message in, the model's reply text out.
type Service struct {
	client Client
	cfg    config.LLMConfig
}

// NewService wraps a Client with the model configuration.
func NewService(client Client, cfg config.LLMConfig) *Service {
	return &Service{client: client, cfg: cfg}
}

// SendMessage invokes the model with history plus newMessage and returns the
// reply text. The configured system prompt, if any, is prepended per request
// and never stored in the conversation context.
func (s *Service) SendMessage(ctx context.Context, history []openai.ChatCompletionMessage, newMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if s.cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: s.cfg.SystemPrompt,
		})
	}
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: newMessage,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
