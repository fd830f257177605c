package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Answerer is anything that answers a question, such as the local response
// table or the remote chatbot client.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// FollowUpSource suggests questions to ask next.
type FollowUpSource interface {
	FollowUps(question string) []string
}

// AnswerTool exposes an Answerer as a tool.
type AnswerTool struct {
	name        string
	description string
	answerer    Answerer
}

// NewAnswerTool creates a tool named name backed by answerer.
func NewAnswerTool(name, description string, answerer Answerer) *AnswerTool {
	return &AnswerTool{name: name, description: description, answerer: answerer}
}

// NewUniversityInfoTool answers from the university knowledge base.
func NewUniversityInfoTool(answerer Answerer) *AnswerTool {
	return NewAnswerTool("university_info",
		"Answers questions about Sukkur IBA University: admissions, programs, fees, policies, campus facilities, academic calendar and contact details.",
		answerer)
}

func (t *AnswerTool) Name() string        { return t.name }
func (t *AnswerTool) Description() string { return t.description }

func (t *AnswerTool) Run(ctx context.Context, question string) (string, error) {
	answer, err := t.answerer.Answer(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.name, err)
	}
	return answer, nil
}

// FollowUpTool returns suggested next questions as a JSON array.
type FollowUpTool struct {
	source FollowUpSource
}

func NewFollowUpTool(source FollowUpSource) *FollowUpTool {
	return &FollowUpTool{source: source}
}

func (t *FollowUpTool) Name() string { return "follow_up_questions" }

func (t *FollowUpTool) Description() string {
	return "Suggests follow-up questions for a question about the university. Returns a JSON array of strings."
}

func (t *FollowUpTool) Run(_ context.Context, question string) (string, error) {
	suggestions := t.source.FollowUps(question)
	if suggestions == nil {
		suggestions = []string{}
	}
	b, err := json.Marshal(suggestions)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
