// Package validate scans extracted chapter text for quality defects.
package validate

import (
	"strings"
	"unicode/utf8"
)

// Issue tags reported by Content. A chapter may raise several at once.
const (
	IssueTooShort     = "Content too short"
	IssueUntranslated = "Untranslated Chinese detected"
	IssuePunctuation  = "Suspicious punctuation"
	IssueFetchFailure = "Fetch failure"
)

// minNarrativeLength is the shortest chapter body, in characters,
// considered plausible prose rather than a stub or an error page.
const minNarrativeLength = 100

// Content checks extracted chapter text and returns the list of issue
// tags it raises, empty when the content is clean. Pure function, no I/O;
// callers decide disposition.
func Content(content string) []string {
	var issues []string

	if utf8.RuneCountInString(content) < minNarrativeLength {
		issues = append(issues, IssueTooShort)
	}
	if containsCJK(content) {
		issues = append(issues, IssueUntranslated)
	}
	if strings.Contains(content, "??") {
		issues = append(issues, IssuePunctuation)
	}
	if strings.Contains(content, "[Error") || strings.Contains(content, "[No content") {
		issues = append(issues, IssueFetchFailure)
	}

	return issues
}

// containsCJK reports whether any rune falls in the CJK Unified
// Ideographs block, which means source-language text leaked through the
// translation or extraction step.
func containsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
