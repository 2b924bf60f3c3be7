// Package prompt builds the system prompt the chatbot sends to the LLM:
// fixed assistant instructions, the destination knowledge base and, when the
// turn triggered a catalog search, a block describing candidate listings.
package prompt

import (
	_ "embed"
	"strings"

	"github.com/tbourn/go-travel-portal/internal/search"
)

//go:embed namibia.md
var defaultKnowledge string

// LoadKnowledge returns the flattened knowledge base. An empty path selects
// the document compiled into the binary; otherwise the markdown file at
// path is read once.
func LoadKnowledge(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return search.FlattenMarkdown(strings.NewReader(defaultKnowledge))
	}
	return search.PrepareMarkdownFile(path)
}
