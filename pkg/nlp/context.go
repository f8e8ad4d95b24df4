// Package nlp provides lightweight keyword classification and regex entity
// extraction used to hint the validation pipeline before any model call.
package nlp

import (
	"regexp"
	"strings"
)

var invoiceKeywords = []string{"invoice", "inv", "billing", "payment", "remittance"}

var poKeywords = []string{"purchase order", "po", "procurement", "vendor", "supplier"}

// ClassifyContext returns a coarse module hint for the ticket text.
func ClassifyContext(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range invoiceKeywords {
		if strings.Contains(lower, kw) {
			return "AP.Invoice"
		}
	}
	for _, kw := range poKeywords {
		if strings.Contains(lower, kw) {
			return "PO.Creation"
		}
	}
	return "General.Inquiry"
}

// entityPatterns map a canonical field name to its extraction regex. The
// value of interest is always the last capture group.
var entityPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Invoice ID", regexp.MustCompile(`(?i)(?:invoice\s*id|inv\s*id|id)\s*[:\s-]*(\b[A-Z0-9-]+\b)`)},
	{"Amount", regexp.MustCompile(`(?i)\b(amount|total)\b\s*(?:is|of|:)?\s*\$?((?:\d{1,3},)*\d{1,3}\.\d{2})\b`)},
	{"Invoice Date", regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4}|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s\d{1,2},\s\d{4})`)},
	{"PO Number", regexp.MustCompile(`(?i)(?:po\s*(?:number|#))\s*[:\s]*(\b[A-Z0-9-]+\b)`)},
	{"Vendor Name", regexp.MustCompile(`(?i)(?:vendor|supplier)\s*[:\s]*([A-Za-z\s,]+(?:Inc\.|Corp\.|Ltd\.))`)},
}

// ExtractEntities pulls known field values out of free text. Missing
// entities are simply absent from the result map.
func ExtractEntities(text string) map[string]string {
	entities := make(map[string]string)
	for _, ep := range entityPatterns {
		m := ep.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		entities[ep.name] = strings.TrimSpace(m[len(m)-1])
	}
	return entities
}
