package todoist

import (
	"fmt"
	"regexp"
)

// The local assignment id is embedded verbatim in a remote task's
// description. It is the only linkage between local records and remote
// tasks, so the wire format lives behind this pair and nothing else may
// parse it.

var linkagePattern = regexp.MustCompile(`(?im)task id:\s*(\S+)\s*$`)

// EncodeLinkage renders the description line carrying the local id.
func EncodeLinkage(id string) string {
	return fmt.Sprintf("🔗 Task ID: %s", id)
}

// DecodeLinkage extracts the local id from remote task description text.
// Returns "" when no linkage line is present.
func DecodeLinkage(text string) string {
	m := linkagePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
