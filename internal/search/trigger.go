package search

import "strings"

// TriggerClassifier decides, per chat message, whether the orchestrator
// should consult the catalog before calling the LLM.
type TriggerClassifier interface {
	// ShouldSearch reports whether message asks for something the catalog
	// can answer.
	ShouldSearch(message string) bool
	// CategoryHint returns the slug of the category the message is about,
	// or "" when none is apparent.
	CategoryHint(message string) string
}

// CategoryKeywords maps a category slug to the phrases that hint at it.
type CategoryKeywords struct {
	Slug     string
	Keywords []string
}

// DefaultTriggers is the vocabulary of phrases that make a message a
// catalog question.
var DefaultTriggers = []string{
	"lodge", "hotel", "accommodation", "guesthouse", "guest house", "stay",
	"camp", "safari", "tour", "guide", "excursion",
	"restaurant", "food", "dining", "eat out", "cafe",
	"car hire", "car rental", "rent a car", "4x4",
	"book", "recommend", "suggest", "where can i", "where to", "where should",
	"looking for", "find", "best", "activities", "things to do", "place to",
}

// DefaultCategoryHints is checked in order; the first category with a
// matching phrase wins.
var DefaultCategoryHints = []CategoryKeywords{
	{Slug: "accommodation", Keywords: []string{"lodge", "hotel", "guesthouse", "guest house", "accommodation", "b&b", "bed and breakfast", "stay"}},
	{Slug: "tour-operators", Keywords: []string{"tour", "safari", "guide", "excursion", "operator"}},
	{Slug: "restaurants", Keywords: []string{"restaurant", "food", "dining", "eat out", "cafe", "dinner", "lunch"}},
	{Slug: "campsites", Keywords: []string{"campsite", "camping", "camp"}},
	{Slug: "car-rental", Keywords: []string{"car hire", "car rental", "rent a car", "4x4", "vehicle"}},
}

// KeywordTrigger is a TriggerClassifier based on substring tests over the
// lowercased message. It is immutable and safe for concurrent use.
type KeywordTrigger struct {
	triggers []string
	hints    []CategoryKeywords
}

// TriggerOption customizes a KeywordTrigger.
type TriggerOption func(*KeywordTrigger)

// WithTriggers replaces the trigger vocabulary.
func WithTriggers(words []string) TriggerOption {
	return func(k *KeywordTrigger) { k.triggers = lowerAll(words) }
}

// WithCategoryHints replaces the category hint table.
func WithCategoryHints(hints []CategoryKeywords) TriggerOption {
	return func(k *KeywordTrigger) {
		k.hints = make([]CategoryKeywords, len(hints))
		for i, h := range hints {
			k.hints[i] = CategoryKeywords{Slug: h.Slug, Keywords: lowerAll(h.Keywords)}
		}
	}
}

// NewKeywordTrigger returns a KeywordTrigger using the default vocabularies
// unless overridden by opts.
func NewKeywordTrigger(opts ...TriggerOption) *KeywordTrigger {
	k := &KeywordTrigger{}
	WithTriggers(DefaultTriggers)(k)
	WithCategoryHints(DefaultCategoryHints)(k)
	for _, o := range opts {
		o(k)
	}
	return k
}

// ShouldSearch implements TriggerClassifier.
func (k *KeywordTrigger) ShouldSearch(message string) bool {
	return containsAnyOf(strings.ToLower(message), k.triggers)
}

// CategoryHint implements TriggerClassifier.
func (k *KeywordTrigger) CategoryHint(message string) string {
	m := strings.ToLower(message)
	for _, h := range k.hints {
		if containsAnyOf(m, h.Keywords) {
			return h.Slug
		}
	}
	return ""
}

func containsAnyOf(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, w := range in {
		out[i] = strings.ToLower(w)
	}
	return out
}
