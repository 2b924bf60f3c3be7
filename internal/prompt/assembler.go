package prompt

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-travel-portal/internal/domain"
)

// ContextMode tells the assembler which listing block, if any, to append.
type ContextMode int

const (
	// ContextNone appends no listing block.
	ContextNone ContextMode = iota
	// ContextMatches presents results as matches for the user's request.
	ContextMatches
	// ContextFeatured presents results as general suggestions after a
	// search found nothing.
	ContextFeatured
)

func (m ContextMode) String() string {
	switch m {
	case ContextMatches:
		return "matches"
	case ContextFeatured:
		return "featured"
	default:
		return "none"
	}
}

// MaxFeatures caps the features listed per candidate.
const MaxFeatures = 4

// Instructions are the fixed assistant instructions at the top of every
// system prompt.
const Instructions = `You are the travel assistant of a Namibia tourism portal.
Help visitors plan trips: destinations, seasons, wildlife, driving and logistics, and where to stay, eat or book tours.
Answer in a friendly, concise way. Use the knowledge base below for facts about Namibia.
When listings from our directory are provided, recommend them by name and mention why they fit; never invent businesses, prices or contact details that are not listed.
If you do not know something, say so and suggest where the visitor could find out.`

const (
	knowledgeHeading = "## Namibia knowledge base"
	matchesHeading   = "## Listings from our directory matching the request"
	featuredHeading  = "## Featured listings from our directory"
	featuredNote     = "No listings matched the request exactly. These are general suggestions, not exact matches; say so when recommending them."
)

// Assembler renders system prompts. It holds only immutable text and is
// safe for concurrent use.
type Assembler struct {
	instructions string
	knowledge    string
}

// NewAssembler returns an Assembler over the given knowledge base text.
func NewAssembler(knowledge string) *Assembler {
	return &Assembler{
		instructions: Instructions,
		knowledge:    strings.TrimSpace(knowledge),
	}
}

// Build returns the system prompt: instructions, knowledge base and, unless
// mode is ContextNone or results is empty, the listing block.
func (a *Assembler) Build(results []domain.SearchResult, mode ContextMode) string {
	var b strings.Builder
	b.WriteString(a.instructions)
	if a.knowledge != "" {
		b.WriteString("\n\n")
		b.WriteString(knowledgeHeading)
		b.WriteString("\n\n")
		b.WriteString(a.knowledge)
	}
	if mode == ContextNone || len(results) == 0 {
		return b.String()
	}

	b.WriteString("\n\n")
	if mode == ContextFeatured {
		b.WriteString(featuredHeading)
		b.WriteString("\n\n")
		b.WriteString(featuredNote)
	} else {
		b.WriteString(matchesHeading)
	}
	b.WriteString("\n")
	for i, r := range results {
		b.WriteString("\n")
		writeListing(&b, i+1, r)
	}
	return b.String()
}

// writeListing renders one candidate as a short numbered entry.
func writeListing(b *strings.Builder, n int, r domain.SearchResult) {
	fmt.Fprintf(b, "%d. %s", n, r.Name)
	if r.CategoryName != "" {
		fmt.Fprintf(b, " (%s)", r.CategoryName)
	}
	if r.IsVerified {
		b.WriteString(" [verified]")
	}
	b.WriteString("\n")
	if loc := location(r.Location, r.Region); loc != "" {
		fmt.Fprintf(b, "   Location: %s\n", loc)
	}
	if d := strings.TrimSpace(r.ShortDescription); d != "" {
		fmt.Fprintf(b, "   %s\n", d)
	}
	if len(r.Features) > 0 {
		f := r.Features
		if len(f) > MaxFeatures {
			f = f[:MaxFeatures]
		}
		fmt.Fprintf(b, "   Features: %s\n", strings.Join(f, ", "))
	}
}

func location(loc, region string) string {
	loc, region = strings.TrimSpace(loc), strings.TrimSpace(region)
	switch {
	case loc == "":
		return region
	case region == "" || strings.EqualFold(loc, region):
		return loc
	default:
		return loc + ", " + region
	}
}
