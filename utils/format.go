package utils

import (
	"strings"
	"time"
)

const DisplayTimeLayout = "02 Jan 2006, 15:04"

// FormatPhone renders Zambian numbers as "+260 97 123 4567". Anything it does not
// recognise is returned trimmed but otherwise untouched.
func FormatPhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 12 && strings.HasPrefix(d, "260"):
		d = d[3:]
	case len(d) == 10 && strings.HasPrefix(d, "0"):
		d = d[1:]
	default:
		return strings.TrimSpace(raw)
	}

	return "+260 " + d[:2] + " " + d[2:5] + " " + d[5:]
}

func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DisplayTimeLayout)
}
