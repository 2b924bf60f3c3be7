package utils

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Sossusvlei Desert Lodge":      "sossusvlei-desert-lodge",
		"  Hoba Café & Bar  ":          "hoba-cafe-bar",
		"Lüderitz -- Nest Hotel!":      "luderitz-nest-hotel",
		"Etosha 4x4 Rentals (Pty) Ltd": "etosha-4x4-rentals-pty-ltd",
		"---":                          "",
		"":                             "",
		"Ōkaukuejo":                    "okaukuejo",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestSlugify_Truncates(t *testing.T) {
	got := Slugify(strings.Repeat("ab ", 100))
	if len(got) > MaxSlugLen || strings.HasSuffix(got, "-") {
		t.Fatalf("bad truncation: %q (len %d)", got, len(got))
	}
}
