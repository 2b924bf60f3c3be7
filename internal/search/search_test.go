package search

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"hi", []string{}},
		{"a to lodge", []string{"lodge"}},
		{"Can you recommend a lodge near Sossusvlei?", []string{"can", "you", "recommend", "lodge", "near", "sossusvlei"}},
		{"LODGE lodge, Lodge!", []string{"lodge"}},
		{"  Lüderitz\tcafé  ", []string{"lüderitz", "café"}},
		{"4x4 ... ok", []string{"4x4"}},
		{"ab. c++ (lodge)", []string{"lodge"}},
		{"«Etosha» camp-site", []string{"etosha", "camp-site"}},
	}
	for _, tc := range cases {
		got := Tokenize(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Tokenize(%q) = %#v; want %#v", tc.in, got, tc.want)
		}
	}
}

func TestKeywordTrigger_ShouldSearch(t *testing.T) {
	k := NewKeywordTrigger()
	yes := []string{
		"Can you recommend a lodge near Sossusvlei?",
		"recommend a lodge",
		"Where can I rent a car in Windhoek",
		"I'm LOOKING FOR a safari",
	}
	no := []string{
		"what time is sunset",
		"Hello",
		"How hot is it in December?",
		"",
	}
	for _, m := range yes {
		if !k.ShouldSearch(m) {
			t.Fatalf("ShouldSearch(%q) = false; want true", m)
		}
	}
	for _, m := range no {
		if k.ShouldSearch(m) {
			t.Fatalf("ShouldSearch(%q) = true; want false", m)
		}
	}
}

func TestKeywordTrigger_CategoryHint(t *testing.T) {
	k := NewKeywordTrigger()
	cases := map[string]string{
		"Recommend a lodge near Etosha":      "accommodation",
		"Best safari operators in Damaraland": "tour-operators",
		"Where to eat out in Swakopmund":      "restaurants",
		"Any campsite in the Kalahari?":       "campsites",
		"I need a 4x4":                        "car-rental",
		"What is the weather like":            "",
	}
	for msg, want := range cases {
		if got := k.CategoryHint(msg); got != want {
			t.Fatalf("CategoryHint(%q) = %q; want %q", msg, got, want)
		}
	}
}

func TestKeywordTrigger_Options(t *testing.T) {
	k := NewKeywordTrigger(
		WithTriggers([]string{"SUNSET"}),
		WithCategoryHints([]CategoryKeywords{{Slug: "activities", Keywords: []string{"Dune"}}}),
	)
	if !k.ShouldSearch("what time is sunset") {
		t.Fatalf("custom trigger not applied")
	}
	if k.ShouldSearch("recommend a lodge") {
		t.Fatalf("default triggers should be replaced")
	}
	if got := k.CategoryHint("climb a dune"); got != "activities" {
		t.Fatalf("custom hint not applied: %q", got)
	}

	var _ TriggerClassifier = k
}
