package todoist

import (
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/model"
)

func TestFormatContent(t *testing.T) {
	tests := []struct {
		name string
		rec  model.AssignmentRecord
		want string
	}{
		{
			"activity with dash and name",
			model.AssignmentRecord{CourseCode: "CS101", RawTitle: "ACTIVITY 3 - Recursion Lab [1077]", Title: "Recursion Lab"},
			"CS101 - Activity 3 (Recursion Lab)",
		},
		{
			"bare activity number",
			model.AssignmentRecord{CourseCode: "CS101", RawTitle: "ACTIVITY 3 Recursion Lab", Title: "Recursion Lab"},
			"CS101 - Activity 3 (Recursion Lab)",
		},
		{
			"activity pattern in title",
			model.AssignmentRecord{CourseCode: "CS101", RawTitle: "", Title: "Activity 2 (Sorting)"},
			"CS101 - Activity 2 (Sorting)",
		},
		{
			"code but no activity",
			model.AssignmentRecord{CourseCode: "ENG210", Title: "Final Essay"},
			"ENG210 - Final Essay",
		},
		{
			"no code",
			model.AssignmentRecord{Title: "Final Essay"},
			"Final Essay",
		},
		{
			"nothing at all",
			model.AssignmentRecord{},
			"Unknown Assignment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatContent(tt.rec); got != tt.want {
				t.Errorf("FormatContent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDescriptionLinkageLast(t *testing.T) {
	rec := model.AssignmentRecord{
		ID:           "42",
		Title:        "Essay",
		Course:       "Writing\n(ENG210)",
		DueDate:      "2026-03-10",
		OriginURL:    "https://lms.example.edu/view.php?id=42",
		Source:       "scrape",
		ActivityType: model.ActivityAssignment,
	}
	desc := FormatDescription(rec)

	lines := strings.Split(desc, "\n")
	if got := lines[len(lines)-1]; got != EncodeLinkage("42") {
		t.Errorf("last line = %q, want the linkage line", got)
	}
	if DecodeLinkage(desc) != "42" {
		t.Errorf("description does not decode back to the id")
	}
	if !strings.Contains(desc, "📅 Deadline: 2026-03-10") {
		t.Errorf("deadline line missing from %q", desc)
	}
	if strings.Contains(desc, "Writing\n(ENG210)") {
		t.Errorf("course newline not flattened")
	}
}

func TestFormatDescriptionOmitsSentinelDue(t *testing.T) {
	rec := model.AssignmentRecord{ID: "42", DueDate: model.NoDueDate}
	if desc := FormatDescription(rec); strings.Contains(desc, "Deadline") {
		t.Errorf("sentinel due date leaked into description: %q", desc)
	}
}

func TestBuildPayload(t *testing.T) {
	today := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.Local)
	rec := model.AssignmentRecord{
		ID:         "42",
		Title:      "Essay",
		CourseCode: "ENG210",
		DueDate:    "2026-03-03",
	}
	p := buildPayload(rec, "p-1", dates.ModeSmart, today)

	if p.ProjectID != "p-1" {
		t.Errorf("ProjectID = %q", p.ProjectID)
	}
	if p.Priority != taskPriority {
		t.Errorf("Priority = %d, want %d", p.Priority, taskPriority)
	}
	// Due in two days under smart mode backs off one day.
	if p.DueDate != "2026-03-02" {
		t.Errorf("DueDate = %q, want 2026-03-02", p.DueDate)
	}
	if len(p.Labels) != 1 || p.Labels[0] != "eng210" {
		t.Errorf("Labels = %v, want lowercase course code", p.Labels)
	}
}

func TestBuildPayloadNoDate(t *testing.T) {
	today := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.Local)
	rec := model.AssignmentRecord{ID: "42", Title: "Essay", DueDate: model.NoDueDate, OpeningDate: model.NoOpeningDate}
	if p := buildPayload(rec, "p-1", dates.ModeSmart, today); p.DueDate != "" {
		t.Errorf("DueDate = %q, want empty when no date is known", p.DueDate)
	}
}
