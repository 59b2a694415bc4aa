package humantime

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	cases := map[time.Duration]string{
		0:                      "0s",
		999 * time.Millisecond: "0s",
		25 * time.Minute:       "25m",
		time.Hour + 5*time.Minute + 3*time.Second: "1h 5m 3s",
		26 * time.Hour: "1d 2h",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	cases := map[string]time.Duration{
		"25m":      25 * time.Minute,
		"1h 5m 3s": time.Hour + 5*time.Minute + 3*time.Second,
		"90":       90 * time.Second,
		"1d 12h":   36 * time.Hour,
		"2d":       48 * time.Hour,
		" 1m30s  ": 90 * time.Second,
		"1500ms":   1500 * time.Millisecond,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "abc", "-5", "-1m", "xd"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
