package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/v1/decks/42":                "/v1/decks/:id",
		"/v1/opponent-decks/7":        "/v1/opponent-decks/:id",
		"/v1/decks/42/extra":          "/v1/decks/42/extra",
		"/v1/results":                 "/v1/results",
		"/v1/results?sort=date":       "/v1/results",
		"/v1/export":                  "/v1/export",
		"/v1/decks/":                  "/v1/decks/",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
