// Package priority derives a ticket priority heuristically from its text.
//
// Priority scale: P1 (critical), P2 (elevated), P3 (normal). Keyword lists
// are checked in order and the first match wins, so classification is
// deterministic for any input.
package priority

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

var p1Keywords = []string{"production down", "system down", "cannot login", "data loss", "critical", "outage"}

var p2Keywords = []string{"slow", "performance", "failed", "error", "timeout", "degraded"}

var numericErrorRE = regexp.MustCompile(`error\s+\d{3,}`)

// Classify returns the priority for a ticket and the reason it was chosen.
func Classify(summary, description string) (models.Priority, string) {
	text := strings.ToLower(summary + "\n" + description)
	for _, kw := range p1Keywords {
		if strings.Contains(text, kw) {
			return models.PriorityP1, fmt.Sprintf("Matched critical keyword '%s'", kw)
		}
	}
	for _, kw := range p2Keywords {
		if strings.Contains(text, kw) {
			return models.PriorityP2, fmt.Sprintf("Matched elevated keyword '%s'", kw)
		}
	}
	// Numeric error codes escalate to P2.
	if numericErrorRE.MatchString(text) {
		return models.PriorityP2, "Found numeric error code"
	}
	return models.PriorityP3, "No priority keywords found"
}
