// Package search holds the pure, stateless text helpers behind the chatbot's
// catalog retrieval:
//
//   - Tokenize turns a free-text query into the keyword tokens matched
//     against listings (tokens shorter than MinTokenRunes are dropped)
//   - KeywordTrigger decides whether a chat message warrants a catalog
//     search and which category to prefer for the featured fallback
//   - FlattenMarkdown prepares the knowledge base document for prompting
//
// Nothing here touches the database or logs; callers decide both.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenRunes is the shortest token kept by Tokenize. "a", "to", "in" and
// other short words would match almost every listing.
const MinTokenRunes = 3

// Tokenize lowercases q, splits it on whitespace, trims punctuation from
// both ends of each token and drops tokens shorter than MinTokenRunes.
// Duplicates are removed; the first occurrence keeps its position.
func Tokenize(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, isEdgePunct)
		if utf8.RuneCountInString(tok) < MinTokenRunes {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
