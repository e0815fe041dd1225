// Package ordering holds the time and menu rules that decide whether a meal
// can be ordered.
package ordering

import (
	"fmt"
	"regexp"
	"time"
)

var cutoffPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Cutoff is a time of day after which a meal can no longer be ordered.
type Cutoff struct {
	Hour   int
	Minute int
}

// ValidCutoff reports whether s is a 24h "HH:MM" time with two-digit fields.
func ValidCutoff(s string) bool { return cutoffPattern.MatchString(s) }

// ParseCutoff parses a 24h "HH:MM" string.
func ParseCutoff(s string) (Cutoff, error) {
	if !ValidCutoff(s) {
		return Cutoff{}, fmt.Errorf("invalid cutoff %q: want HH:MM", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return Cutoff{Hour: h, Minute: m}, nil
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the cutoff instant on the calendar day of t, in t's location.
func (c Cutoff) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// IsPastCutoff reports whether now is strictly after the cutoff on now's
// calendar day. An empty or unparsable cutoff is never past.
func IsPastCutoff(now time.Time, cutoff string) bool {
	if cutoff == "" {
		return false
	}
	c, err := ParseCutoff(cutoff)
	if err != nil {
		return false
	}
	return now.After(c.On(now))
}
