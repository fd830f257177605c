package tools

import "context"

// Tool is the interface for all tools. Every tool takes a single free-text
// question and returns text.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, question string) (string, error)
}
