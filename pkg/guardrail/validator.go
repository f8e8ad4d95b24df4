// Package guardrail validates model-drafted solutions before they reach a
// human reviewer.
//
// Checks performed:
//  1. Citation coverage: every substantive paragraph should reference an
//     internal or external source.
//  2. Source whitelist: all cited INT/WEB references must exist in the
//     provided allowed sets.
//  3. Unsafe command filtering: paragraphs containing dangerous patterns are
//     stripped and flagged.
//
// A solution that trips a hard rule is cleaned and marked invalid so the
// caller can cap its confidence.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// Severity levels for issues.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// UnsafeCommandPatterns are stripped from drafted steps (case-insensitive
// substring match).
var UnsafeCommandPatterns = []string{
	"DROP TABLE", "DELETE FROM", "TRUNCATE ", "SHUTDOWN IMMEDIATE", "rm -rf /",
	"format c:", "ALTER SYSTEM", "GRANT ALL",
}

// minWordsForCitation: paragraphs at or below this word count may omit
// citations without a warning.
const minWordsForCitation = 4

var citationRE = regexp.MustCompile(`\[(INT:[^\]]+|WEB:[^\]]+)\]`)

// ValidateSolution checks one solution text against the allowed citation
// sets. It returns the possibly-cleaned text (unsafe paragraphs removed),
// the issue list, and whether the solution is valid (no error-severity
// issues).
func ValidateSolution(solutionText string, allowedInternal []string, allowedExternalIndices []string) (string, []models.GuardrailIssue, bool) {
	allowedInternalTags := make(map[string]bool, len(allowedInternal))
	for _, k := range allowedInternal {
		allowedInternalTags["INT:"+k] = true
	}
	allowedWebTags := make(map[string]bool, len(allowedExternalIndices))
	for _, idx := range allowedExternalIndices {
		allowedWebTags["WEB:"+idx] = true
	}

	var issues []models.GuardrailIssue
	var cleaned []string

	for i, para := range strings.Split(solutionText, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			cleaned = append(cleaned, para)
			continue
		}

		citations := citationRE.FindAllStringSubmatch(para, -1)
		if len(citations) == 0 && len(strings.Fields(para)) > minWordsForCitation {
			issues = append(issues, models.GuardrailIssue{
				Severity:       SeverityWarning,
				Message:        "Paragraph lacks citations",
				ParagraphIndex: i,
			})
		}
		for _, m := range citations {
			tag := m[1]
			switch {
			case strings.HasPrefix(tag, "INT:") && !allowedInternalTags[tag]:
				issues = append(issues, models.GuardrailIssue{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("Unknown internal citation %s", tag),
					ParagraphIndex: i,
				})
			case strings.HasPrefix(tag, "WEB:") && !allowedWebTags[tag]:
				issues = append(issues, models.GuardrailIssue{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("Unknown external citation %s", tag),
					ParagraphIndex: i,
				})
			}
		}

		if hits := unsafeHits(para); len(hits) > 0 {
			issues = append(issues, models.GuardrailIssue{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("Unsafe command pattern(s): %s", strings.Join(hits, ", ")),
				ParagraphIndex: i,
			})
			// Strip the paragraph entirely.
			continue
		}
		cleaned = append(cleaned, para)
	}

	isValid := true
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			isValid = false
			break
		}
	}
	return strings.Join(cleaned, "\n"), issues, isValid
}

func unsafeHits(para string) []string {
	lower := strings.ToLower(para)
	var hits []string
	for _, pat := range UnsafeCommandPatterns {
		if strings.Contains(lower, strings.ToLower(pat)) {
			hits = append(hits, pat)
		}
	}
	return hits
}
