package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/unichat/internal/config"
	"github.com/comigor/unichat/internal/logger"
)

const defaultSystemPrompt = "You are the Sukkur IBA University assistant. Answer questions about admissions, academic programs, fees and scholarships, university policies, campus facilities and the academic calendar accurately and concisely. If you do not know, point the user to info@iba-suk.edu.pk or +92-71-5644000."

// ErrEmptyCompletion is returned when the model replies without any content.
var ErrEmptyCompletion = errors.New("llm: completion has no content")

// Answerer answers a single question with one chat completion.
type Answerer struct {
	client       Client
	model        string
	systemPrompt string
}

// NewAnswerer creates an Answerer; an empty cfg.SystemPrompt selects the built-in one.
func NewAnswerer(client Client, cfg config.LLMConfig) *Answerer {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	return &Answerer{client: client, model: cfg.Model, systemPrompt: prompt}
}

// Answer sends the system prompt and the question and returns the reply text.
func (a *Answerer) Answer(ctx context.Context, question string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", err
	}
	logger.L.Debug("LLM response received", "model", resp.Model, "choices", len(resp.Choices))

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
