package dates

import "time"

// Mode selects how the target (reminder) date is computed.
type Mode string

const (
	// ModeExact puts the assignment's own due date on the remote task.
	ModeExact Mode = "exact"
	// ModeSmart backs the reminder off the most constraining date by a
	// lead time that grows with distance. The default.
	ModeSmart Mode = "smart"
)

// ComputeTargetDate returns the calendar date the remote task's due date
// should carry, or the zero time when no date can be determined. dueText and
// openingText are the raw scraped strings (sentinels allowed). today is
// injected so the lead-time tables are testable.
func ComputeTargetDate(dueText, openingText string, mode Mode, today time.Time) time.Time {
	today = midnight(today)

	due := Parse(dueText)
	if mode == ModeExact {
		return due
	}

	// Reference date: the later of due and opening. The opening date only
	// wins when strictly later, so reminders never fire before an activity
	// opens but still track whichever date is more constraining.
	opening := Parse(openingText)
	reference := due
	openingIsReference := false
	if !opening.IsZero() && (due.IsZero() || opening.After(due)) {
		reference = opening
		openingIsReference = true
	}
	if reference.IsZero() {
		return time.Time{}
	}

	daysUntil := int(reference.Sub(today).Hours() / 24)
	if daysUntil <= 0 {
		// Already open/due or overdue: remind today.
		return today
	}

	lead := leadDays(daysUntil, openingIsReference)
	target := reference.AddDate(0, 0, -lead)
	if target.Before(today) {
		target = today
	}
	return target
}

// leadDays is the reminder lead-time table. Opening-date references use
// shorter leads than due-date references at the same distance.
func leadDays(daysUntil int, openingIsReference bool) int {
	if openingIsReference {
		switch {
		case daysUntil <= 1:
			return 0
		case daysUntil <= 3:
			return 1
		case daysUntil <= 7:
			return 2
		case daysUntil <= 14:
			return 3
		default:
			return 7
		}
	}
	switch {
	case daysUntil <= 3:
		return max(1, daysUntil-1)
	case daysUntil <= 7:
		return 3
	case daysUntil <= 14:
		return 5
	case daysUntil <= 30:
		return 7
	default:
		return 14
	}
}
