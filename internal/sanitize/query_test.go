package sanitize

import "testing"

func TestQuerySanitization(t *testing.T) {
	cases := map[string]string{
		"claude.memory": "claude memory",
		"git/safety":    "git safety",
		"time: 15:30":   "time 15 30",
		"???":           "???",
	}
	for in, want := range cases {
		got := Query(in)
		if got != want {
			t.Errorf("Query(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuerySanitizationIdempotent(t *testing.T) {
	samples := []string{"claude.memory", "git/safety", "time: 15:30", "???", "plain words"}
	for _, q := range samples {
		once := Query(q)
		twice := Query(once)
		if once != twice {
			t.Errorf("Query not idempotent for %q: once=%q twice=%q", q, once, twice)
		}
	}
}
