package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultMenuPrefix = "Thank you for your question!"

var defaultPrompts = []string{
	"Tell me about admission requirements",
	"What programs are available?",
	"Show me the fee structure",
	"What facilities are on campus?",
}

func TestDefault_LoadsEmbeddedTable(t *testing.T) {
	table := Default()
	assert.Equal(t, 7, table.Len())
}

// Each query hits keywords of exactly one entry, so it must get that entry's answer.
func TestSelectResponse_SingleEntryMatch(t *testing.T) {
	table := Default()

	cases := map[string]string{
		"How do I apply?":                  "**Admission Requirements for Sukkur IBA:**",
		"Which degrees are offered?":       "**Academic Programs at Sukkur IBA:**",
		"Is there a scholarship?":          "**Fee Structure - Sukkur IBA University:**",
		"What is the attendance rule?":     "**University Policies - Sukkur IBA:**",
		"Is there a gym or sports ground?": "**Campus Facilities at Sukkur IBA:**",
		"When does the semester begin?":    "**Academic Calendar - Sukkur IBA:**",
		"What is your phone number?":       "**Contact Information - Sukkur IBA University:**",
	}
	for query, header := range cases {
		got := table.SelectResponse(query)
		assert.True(t, strings.HasPrefix(got, header), "query %q got %q", query, firstLine(got))
	}
}

// The programs entry sits above the fee entry, so one "program" hit beats six fee hits.
func TestSelectResponse_FirstMatchWinsOverMoreHits(t *testing.T) {
	table := Default()
	query := "Is there a scholarship or financial aid to help with tuition fees for my program?"

	got := table.SelectResponse(query)
	assert.True(t, strings.HasPrefix(got, "**Academic Programs at Sukkur IBA:**"), firstLine(got))
	assert.Equal(t, []string{
		"What are the admission requirements?",
		"Tell me about fee structure",
		"What facilities are available?",
	}, table.SelectFollowUps(query))
}

func TestSelectResponse_CaseInsensitive(t *testing.T) {
	table := Default()
	assert.Equal(t, table.SelectResponse("fees"), table.SelectResponse("FEES PLEASE"))
}

func TestScenario_FeeStructure(t *testing.T) {
	table := Default()
	query := "What is the fee structure?"

	assert.True(t, strings.HasPrefix(table.SelectResponse(query), "**Fee Structure - Sukkur IBA University:**"))
	assert.Equal(t, []string{
		"How to apply for scholarship?",
		"What are payment methods?",
		"Tell me about campus facilities",
	}, table.SelectFollowUps(query))
}

// Inputs with no keyword overlap fall back to the topic menu and the generic prompts.
func TestScenario_NoMatch(t *testing.T) {
	table := Default()

	for _, query := range []string{"asdkjalsd", "", "   ", "42?"} {
		got := table.SelectResponse(query)
		assert.True(t, strings.HasPrefix(got, defaultMenuPrefix), "query %q", query)
		assert.Contains(t, got, "info@iba-suk.edu.pk")
		assert.Equal(t, defaultPrompts, table.SelectFollowUps(query))
	}
}

func TestSelectFollowUps_ReturnsCopy(t *testing.T) {
	table := Default()

	got := table.SelectFollowUps("fees")
	got[0] = "mutated"
	assert.NotEqual(t, "mutated", table.SelectFollowUps("fees")[0])

	def := table.SelectFollowUps("zzz")
	def[0] = "mutated"
	assert.Equal(t, defaultPrompts, table.SelectFollowUps("zzz"))
}

// A matched entry without follow-ups yields none rather than the defaults.
func TestSelectFollowUps_MatchedEntryWithoutFollowUps(t *testing.T) {
	table, err := NewTable([]Entry{
		{Keywords: []string{"Parking"}, Response: "Lot B."},
	}, "menu", []string{"a", "b", "c", "d"})
	require.NoError(t, err)

	assert.Empty(t, table.SelectFollowUps("where is parking?"))
	assert.Equal(t, "Lot B.", table.SelectResponse("PARKING"), "keywords are lowercased on load")
}

func TestNewTable_Validation(t *testing.T) {
	cases := map[string]struct {
		entries []Entry
		def     string
	}{
		"no keywords":     {entries: []Entry{{Response: "r"}}, def: "menu"},
		"blank keyword":   {entries: []Entry{{Keywords: []string{" "}, Response: "r"}}, def: "menu"},
		"no response":     {entries: []Entry{{Keywords: []string{"k"}}}, def: "menu"},
		"no default body": {entries: nil, def: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTable(tc.entries, tc.def, nil)
			require.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.yaml")
	body := `
entries:
  - keywords: [library]
    response: Open 8 to 8.
    follow_ups: ["Can I borrow books?"]
default_response: Ask me about the library.
default_follow_ups: ["Library hours?"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Open 8 to 8.", table.SelectResponse("Library hours"))
	assert.Equal(t, "Ask me about the library.", table.SelectResponse("fees"))
	assert.Equal(t, []string{"Library hours?"}, table.SelectFollowUps("fees"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("entries: {not: a list}"), 0o644))
	_, err = LoadFile(path)
	require.ErrorIs(t, err, ErrInvalidTable)
}

func TestAnswer_NeverFails(t *testing.T) {
	table := Default()
	answer, err := table.Answer(context.Background(), "What is the fee structure?")
	require.NoError(t, err)
	assert.Equal(t, table.SelectResponse("What is the fee structure?"), answer)
	assert.Equal(t, table.SelectFollowUps("What is the fee structure?"), table.FollowUps("What is the fee structure?"))
}

func TestQuickQuestions(t *testing.T) {
	qs := QuickQuestions()
	require.Len(t, qs, 6)
	assert.Equal(t, "Fee Structure", qs[3].Label)
	for _, q := range qs {
		assert.False(t, strings.HasPrefix(Default().SelectResponse(q.Question), defaultMenuPrefix), q.Label)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
