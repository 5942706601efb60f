// Package identity derives stable identifiers and canonical fields from raw
// scraped assignments. Everything here is pure: unusable input degrades to
// sentinel values instead of failing the batch.
package identity

import (
	"regexp"
	"strings"

	"github.com/harrisonrobin/lmsync/pkg/model"
)

// Source tag recorded on records produced from scraped observations.
const SourceScrape = "scrape"

var idParam = regexp.MustCompile(`[?&]id=(\d+)`)

// DeriveID returns the stable identifier for an origin URL: the numeric id
// query parameter when present, otherwise the URL itself. Distinct resources
// must yield distinct ids, so there is no further truncation or hashing.
func DeriveID(url string) string {
	if m := idParam.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return url
}

var courseCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(([A-Z]{2,10}\d{2,4})\)`),  // (CS101)
	regexp.MustCompile(`:\s*([A-Z]{2,10}\d{2,4})`),  // Intro: CS101
	regexp.MustCompile(`^([A-Z]{2,10}\d{2,4})`),     // CS101 Intro
	regexp.MustCompile(`([A-Z]{2,10}\d{2,4})$`),     // Intro CS101
	regexp.MustCompile(`[A-Z]{2,4}\s?-?\d{3,4}`),    // CS 101, CS-101
}

// ExtractCourseCode applies an ordered set of heuristic patterns to a course
// title and returns the first match. When nothing matches it falls back to a
// truncated first token, which may legitimately be a poor code.
func ExtractCourseCode(course string) string {
	if course == "" {
		return ""
	}
	for i, re := range courseCodePatterns {
		m := re.FindStringSubmatch(course)
		if m == nil {
			continue
		}
		if i < 4 {
			return m[1]
		}
		// Generic pattern has no capture group; strip interior spaces.
		return strings.ReplaceAll(m[0], " ", "")
	}
	first := strings.FieldsFunc(course, func(r rune) bool {
		return r == ' ' || r == ':'
	})
	if len(first) == 0 {
		return ""
	}
	tok := first[0]
	if len(tok) > 12 {
		tok = tok[:12]
	}
	return tok
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeTitle lower-cases, collapses whitespace and trims. The result is
// only used for comparisons, never displayed.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(title), " "))
}

// normalizeActivityType maps the scraper's free-form module class onto the
// known enum, defaulting to unknown.
func normalizeActivityType(s string) model.ActivityType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "assign", "assignment":
		return model.ActivityAssignment
	case "quiz":
		return model.ActivityQuiz
	case "quiz_link", "quizlink":
		return model.ActivityQuizLink
	case "lesson_link", "lessonlink", "url":
		return model.ActivityLessonLink
	case "forum":
		return model.ActivityForum
	case "":
		return ""
	default:
		return model.ActivityUnknown
	}
}

// Normalize converts a raw scraped assignment into an Observation fragment.
// Fields the scrape did not provide stay empty so the merge engine can keep
// the stored values.
func Normalize(raw model.RawAssignment) model.Observation {
	title := strings.TrimSpace(raw.Title)
	rawTitle := strings.TrimSpace(raw.RawTitle)
	if rawTitle == "" {
		rawTitle = title
	}
	return model.Observation{
		ID:           DeriveID(raw.URL),
		Title:        title,
		RawTitle:     rawTitle,
		Course:       strings.TrimSpace(raw.Course),
		CourseCode:   ExtractCourseCode(raw.Course),
		ActivityType: normalizeActivityType(raw.ActivityType),
		DueDate:      strings.TrimSpace(raw.DueDateText),
		OpeningDate:  strings.TrimSpace(raw.OpeningDateText),
		Status:       raw.Status,
		OriginURL:    raw.URL,
		Source:       SourceScrape,
	}
}
