package todoist

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/model"
)

// Task is a remote task as the provider returns it.
type Task struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels,omitempty"`
	Due         *Due     `json:"due,omitempty"`
	IsCompleted bool     `json:"is_completed"`
}

// Due is the provider's due object; Date is YYYY-MM-DD.
type Due struct {
	Date string `json:"date"`
}

// DueDate returns the task's due date, or "".
func (t *Task) DueDate() string {
	if t.Due == nil {
		return ""
	}
	return t.Due.Date
}

// Project is a remote task container.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Assignment tasks are created at this priority (provider scale 1-4).
const taskPriority = 2

var (
	activityDashPattern  = regexp.MustCompile(`(?i)ACTIVITY\s+(\d+)\s*-\s*([^\[]+)`)
	activityBarePattern  = regexp.MustCompile(`(?i)ACTIVITY\s+(\d+)`)
	activityPrefixStrip  = regexp.MustCompile(`(?i)ACTIVITY\s+\d+\s*-?\s*`)
	activityTitlePattern = regexp.MustCompile(`(?i)Activity\s+(\d+)\s*\(([^)]+)\)`)
	bracketNumber        = regexp.MustCompile(`\s*\[\d+\]`)
)

// FormatContent builds the remote task title: the course code plus any
// "Activity N" pattern recoverable from the raw title, falling back to the
// assignment title.
func FormatContent(rec model.AssignmentRecord) string {
	title := rec.Title
	if title == "" {
		title = "Unknown Assignment"
	}

	var activity, name string
	if m := activityDashPattern.FindStringSubmatch(rec.RawTitle); m != nil {
		activity = "Activity " + m[1]
		name = strings.TrimSpace(m[2])
	} else if m := activityBarePattern.FindStringSubmatch(rec.RawTitle); m != nil {
		activity = "Activity " + m[1]
		name = strings.TrimSpace(bracketNumber.ReplaceAllString(
			activityPrefixStrip.ReplaceAllString(rec.RawTitle, ""), ""))
	} else if m := activityTitlePattern.FindStringSubmatch(title); m != nil {
		activity = "Activity " + m[1]
		name = strings.TrimSpace(m[2])
	}

	switch {
	case rec.CourseCode != "" && activity != "":
		if name != "" {
			name = strings.TrimSpace(bracketNumber.ReplaceAllString(name, ""))
			return fmt.Sprintf("%s - %s (%s)", rec.CourseCode, activity, name)
		}
		return fmt.Sprintf("%s - %s", rec.CourseCode, activity)
	case rec.CourseCode != "":
		return fmt.Sprintf("%s - %s", rec.CourseCode, title)
	default:
		return title
	}
}

// FormatDescription builds the structured remote task description. The
// linkage line embedding the local id always comes last.
func FormatDescription(rec model.AssignmentRecord) string {
	var parts []string
	if rec.DueDate != "" && rec.DueDate != model.NoDueDate {
		parts = append(parts, "📅 Deadline: "+rec.DueDate)
	}
	if rec.OriginURL != "" {
		parts = append(parts, "🔗 Link: "+rec.OriginURL)
	}
	if rec.Course != "" {
		course := strings.TrimSpace(strings.ReplaceAll(rec.Course, "\n", " "))
		parts = append(parts, "📚 Course: "+course)
	}
	if rec.Source != "" {
		parts = append(parts, "📧 Source: "+rec.Source)
	}
	if rec.ActivityType != "" {
		parts = append(parts, "🔧 Type: "+string(rec.ActivityType))
	}
	parts = append(parts, EncodeLinkage(rec.ID))
	return strings.Join(parts, "\n")
}

// taskPayload is the create/update request body.
type taskPayload struct {
	Content     string   `json:"content"`
	Description string   `json:"description"`
	ProjectID   string   `json:"project_id,omitempty"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
}

func buildPayload(rec model.AssignmentRecord, projectID string, mode dates.Mode, today time.Time) taskPayload {
	p := taskPayload{
		Content:     FormatContent(rec),
		Description: FormatDescription(rec),
		ProjectID:   projectID,
		Priority:    taskPriority,
	}
	if target := dates.ComputeTargetDate(rec.DueDate, rec.OpeningDate, mode, today); !target.IsZero() {
		p.DueDate = dates.FormatISO(target)
	}
	if rec.CourseCode != "" {
		p.Labels = []string{strings.ToLower(rec.CourseCode)}
	}
	return p
}
