// Package knowledge answers university questions from a fixed table of canned
// responses selected by keyword containment.
package knowledge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed responses.yaml
var defaultTableYAML []byte

// ErrInvalidTable is returned when a table definition breaks the entry rules.
var ErrInvalidTable = errors.New("knowledge: invalid response table")

// Entry is one canned answer and the keywords that trigger it.
type Entry struct {
	Keywords  []string `yaml:"keywords"`
	Response  string   `yaml:"response"`
	FollowUps []string `yaml:"follow_ups"`
}

type tableFile struct {
	Entries          []Entry  `yaml:"entries"`
	DefaultResponse  string   `yaml:"default_response"`
	DefaultFollowUps []string `yaml:"default_follow_ups"`
}

// Table is an ordered, immutable list of entries plus the answers used when
// nothing matches. Earlier entries take priority.
type Table struct {
	entries          []Entry
	defaultResponse  string
	defaultFollowUps []string
}

// NewTable validates and copies entries. Keywords are lowercased; every entry
// needs at least one non-blank keyword and a response.
func NewTable(entries []Entry, defaultResponse string, defaultFollowUps []string) (*Table, error) {
	if strings.TrimSpace(defaultResponse) == "" {
		return nil, fmt.Errorf("%w: empty default response", ErrInvalidTable)
	}

	t := &Table{
		entries:          make([]Entry, 0, len(entries)),
		defaultResponse:  defaultResponse,
		defaultFollowUps: slices.Clone(defaultFollowUps),
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Response) == "" {
			return nil, fmt.Errorf("%w: entry %d has no response", ErrInvalidTable, i)
		}
		keywords := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			if strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("%w: entry %d has a blank keyword", ErrInvalidTable, i)
			}
			keywords = append(keywords, strings.ToLower(k))
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("%w: entry %d has no keywords", ErrInvalidTable, i)
		}
		t.entries = append(t.entries, Entry{
			Keywords:  keywords,
			Response:  e.Response,
			FollowUps: slices.Clone(e.FollowUps),
		})
	}
	return t, nil
}

// Parse reads a table from its YAML form (see responses.yaml).
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return NewTable(f.Entries, f.DefaultResponse, f.DefaultFollowUps)
}

// LoadFile reads a table override from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read response table: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in university table.
func Default() *Table {
	t, err := Parse(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded response table: %v", err))
	}
	return t
}

// Len reports the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// matchCount counts keywords contained in an already lowercased query.
func matchCount(keywords []string, query string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(query, k) {
			n++
		}
	}
	return n
}

// match returns the first entry in table order with any keyword hit. A later
// entry with more hits never wins over an earlier one.
func (t *Table) match(query string) (Entry, bool) {
	q := strings.ToLower(query)
	for _, e := range t.entries {
		if matchCount(e.Keywords, q) > 0 {
			return e, true
		}
	}
	return Entry{}, false
}

// SelectResponse returns the response of the first matching entry, or the
// default topic menu.
func (t *Table) SelectResponse(query string) string {
	if e, ok := t.match(query); ok {
		return e.Response
	}
	return t.defaultResponse
}

// SelectFollowUps returns the first matching entry's follow-ups (possibly
// none), or the default prompts when nothing matches.
func (t *Table) SelectFollowUps(query string) []string {
	if e, ok := t.match(query); ok {
		return slices.Clone(e.FollowUps)
	}
	return slices.Clone(t.defaultFollowUps)
}

// Answer lets the table stand in for a remote answerer. It never fails.
func (t *Table) Answer(_ context.Context, question string) (string, error) {
	return t.SelectResponse(question), nil
}

// FollowUps is SelectFollowUps under the name the chat agent looks for.
func (t *Table) FollowUps(question string) []string {
	return t.SelectFollowUps(question)
}
