package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/unichat/internal/knowledge"
)

type failingAnswerer struct{}

func (failingAnswerer) Answer(context.Context, string) (string, error) {
	return "", errors.New("server unreachable")
}

func TestToolManager(t *testing.T) {
	m := NewToolManager()
	table := knowledge.Default()
	m.RegisterTool(NewUniversityInfoTool(table))
	m.RegisterTool(NewFollowUpTool(table))

	var names []string
	for _, tool := range m.List() {
		names = append(names, tool.Name())
	}
	require.Equal(t, []string{"follow_up_questions", "university_info"}, names)

	tool, err := m.GetTool("university_info")
	require.NoError(t, err)
	require.Equal(t, "university_info", tool.Name())

	_, err = m.GetTool("home_assistant")
	require.Error(t, err)
}

func TestUniversityInfoTool(t *testing.T) {
	tool := NewUniversityInfoTool(knowledge.Default())
	out, err := tool.Run(context.Background(), "How do I apply?")
	require.NoError(t, err)
	require.Contains(t, out, "Admission Requirements")

	_, err = NewAnswerTool("ask", "remote", failingAnswerer{}).Run(context.Background(), "hi")
	require.ErrorContains(t, err, "ask: server unreachable")
}

func TestFollowUpTool(t *testing.T) {
	tool := NewFollowUpTool(knowledge.Default())
	out, err := tool.Run(context.Background(), "xyz")
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, []string{
		"Tell me about admission requirements",
		"What programs are available?",
		"Show me the fee structure",
		"What facilities are on campus?",
	}, got)
}
