// Package compliance scrubs sensitive tokens from text before it leaves the
// process for a model provider.
//
// Redactions are fast, pre-compiled regex passes for:
//   - email addresses
//   - API-key-like tokens (sk-..., api_..., key-...)
//   - long hex runs (likely digests or secrets)
//   - long base64-like runs
//   - JWT-shaped three-segment tokens
package compliance

import "regexp"

// RedactionToken replaces every matched span.
const RedactionToken = "[REDACTED]"

var (
	emailRE     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	apiKeyRE    = regexp.MustCompile(`(?i)\b(?:sk|api|key)[_-][A-Za-z0-9]{8,}\b`)
	hexLongRE   = regexp.MustCompile(`(?i)\b[a-f0-9]{32,}\b`)
	base64ishRE = regexp.MustCompile(`\b[A-Za-z0-9+/]{40,}={0,2}\b`)
	jwtRE       = regexp.MustCompile(`\b[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)
)

// Order matters: broader structural patterns run after the specific ones so
// counts stay stable for repeated inputs.
var patterns = []*regexp.Regexp{emailRE, apiKeyRE, hexLongRE, base64ishRE, jwtRE}

// Scrub returns the redacted text and the number of redactions applied.
func Scrub(text string) (string, int) {
	redactions := 0
	for _, pat := range patterns {
		text = pat.ReplaceAllStringFunc(text, func(string) string {
			redactions++
			return RedactionToken
		})
	}
	return text, redactions
}
