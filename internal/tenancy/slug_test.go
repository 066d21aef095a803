package tenancy

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":            "acme-corp",
		"  Hello,   World!  ":  "hello-world",
		"Q3 -- Roadmap / 2026": "q3-roadmap-2026",
		"Ünïcode Café":         "n-code-caf",
		"!!!":                  "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slugify(strings.Repeat("ab", 40)); got != strings.Repeat("ab", 25) {
		t.Errorf("Slugify(long) = %q, want 50 characters", got)
	}
}

func TestValidSlug(t *testing.T) {
	valid := []string{"ab", "acme-corp", "q3-2026", strings.Repeat("a", 50)}
	invalid := []string{"", "a", "Acme", "acme_corp", "acme corp", strings.Repeat("a", 51)}
	for _, s := range valid {
		if !ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = false", s)
		}
	}
	for _, s := range invalid {
		if ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = true", s)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	got := withSuffix("acme")
	if !strings.HasPrefix(got, "acme-") || len(got) != len("acme-")+suffixLength {
		t.Fatalf("withSuffix(acme) = %q", got)
	}
	if !ValidSlug(got) {
		t.Fatalf("withSuffix produced invalid slug %q", got)
	}
	long := withSuffix(strings.Repeat("x", maxSlugLength))
	if len(long) > maxSlugLength || !ValidSlug(long) {
		t.Fatalf("withSuffix(long) = %q (len %d)", long, len(long))
	}
	if bare := withSuffix(""); len(bare) != suffixLength {
		t.Fatalf("withSuffix(\"\") = %q", bare)
	}
}
