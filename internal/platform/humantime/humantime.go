// Package humantime converts between durations and the short human form used
// in configuration files and end-action environments ("25m", "1h 5m 3s").
package humantime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format renders d truncated to whole seconds. Zero renders as "0s".
func Format(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	secs := int64(d / time.Second)
	parts := make([]string, 0, 4)
	for _, unit := range []struct {
		size   int64
		suffix string
	}{
		{86400, "d"},
		{3600, "h"},
		{60, "m"},
		{1, "s"},
	} {
		if n := secs / unit.size; n > 0 {
			parts = append(parts, strconv.FormatInt(n, 10)+unit.suffix)
			secs %= unit.size
		}
	}
	return strings.Join(parts, " ")
}

// Parse accepts Go duration syntax with optional spaces between components,
// a "d" day unit, and bare integers as seconds.
func Parse(s string) (time.Duration, error) {
	compact := strings.Join(strings.Fields(s), "")
	if compact == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(compact, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}

	var days time.Duration
	if i := strings.IndexByte(compact, 'd'); i > 0 {
		n, err := strconv.ParseInt(compact[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		days = time.Duration(n) * 24 * time.Hour
		compact = compact[i+1:]
	}
	if compact == "" {
		return days, nil
	}
	d, err := time.ParseDuration(compact)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return days + d, nil
}
