package helpers

import (
	"fmt"
	"time"
)

// ParseSince turns a --since value into an absolute time. It accepts a
// duration relative to now ("36h"), an RFC3339 timestamp or a plain date.
// An empty value returns the zero time.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("invalid --since duration %q: must be positive", s)
		}
		return now.Add(-d), nil
	}
	t, err := parseTime(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value %q: %w", s, err)
	}
	return t, nil
}

func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format (use a duration, RFC3339 or YYYY-MM-DD)")
}

// Age renders the time elapsed since t in a compact form such as "5m" or "3d".
func Age(t, now time.Time) string {
	d := max(now.Sub(t), 0)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
