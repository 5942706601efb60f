// Package dates parses the heterogeneous date text Moodle pages produce and
// computes the reminder date a remote task should carry.
package dates

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Layouts tried in order; the first successful parse wins.
var layouts = []string{
	"Monday, 2 January 2006, 3:04 PM", // long form as rendered by Moodle
	"2 January 2006",                  // short form
	"2006-01-02",                      // ISO
}

var nlParser = func() *when.Parser {
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return p
}()

// Parse attempts to parse assignment date text. It returns the zero time
// when the text is empty, a known sentinel, or unparseable under every
// format. The result is truncated to midnight local time.
func Parse(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "No ") {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return midnight(t)
		}
	}
	// Pages occasionally drop the comma before the time component.
	if t, err := time.ParseInLocation("Monday, 2 January 2006 3:04 PM", text, time.Local); err == nil {
		return midnight(t)
	}
	// Last resort: natural-language parse ("tomorrow", "next Monday 6 PM").
	if r, err := nlParser.Parse(text, time.Now()); err == nil && r != nil {
		return midnight(r.Time)
	}
	return time.Time{}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatISO renders a date the way the remote provider expects due dates.
func FormatISO(t time.Time) string {
	return t.Format("2006-01-02")
}
