package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// ApproachDirective steers one synthesis alternative. The three fixed
// directives give reviewers genuinely different angles over the same
// evidence set.
type ApproachDirective struct {
	Label       string
	Instruction string
}

// ApproachDirectives are applied in order; alternative i uses directive
// i mod len.
var ApproachDirectives = []ApproachDirective{
	{
		Label:       "step-by-step remediation",
		Instruction: "Write a concrete, numbered step-by-step remediation plan the reporter can execute immediately.",
	},
	{
		Label:       "likely root cause",
		Instruction: "Identify the most likely root cause first, then describe the fix that addresses it.",
	},
	{
		Label:       "prevention and optimization",
		Instruction: "Focus on preventing recurrence: configuration hardening, monitoring, and process improvements alongside the immediate fix.",
	},
}

// buildValidationPrompt constructs the deterministic validation prompt. The
// knowledge base is embedded as JSON so the template is stable for any given
// input.
func buildValidationPrompt(bundle string, kb models.KnowledgeBase) (string, error) {
	knowledgeJSON, err := json.MarshalIndent(kb, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal knowledge base: %w", err)
	}

	return fmt.Sprintf(`**Instructions**
1. Analyze the 'Ticket Text Bundle' and critically examine any images provided.
2. Determine which ERP module the ticket relates to from the 'Module Knowledge Base'.
3. Check if all 'mandatory_fields' for that module are present in the combined content.
4. Provide a numeric confidence score (0.0 to 1.0) for your validation.
5. Provide your final verdict in a single, clean JSON object. Do not add any text outside the JSON.

**JSON Output Format**
{
  "module": "The name of the module you identified (e.g., AP.Invoice)",
  "validation_status": "Either 'complete' or 'incomplete'",
  "missing_fields": ["A list of missing mandatory fields. Empty if complete."],
  "confidence": 1.0
}

---
**Module Knowledge Base**
`+"```json\n%s\n```"+`
---
**Ticket Text Bundle**
`+"```text\n%s\n```"+`
---
**Your Verdict (JSON only)**`, knowledgeJSON, bundle), nil
}

// buildSynthesisPrompt constructs the prompt for one solution alternative
// over the ranked evidence. Citation tokens are dictated in-prompt: internal
// sources as [INT:<ticket_key>], external as [WEB:<n>] (1-based).
func buildSynthesisPrompt(ticketContext string, sources []models.Source, directive ApproachDirective) string {
	var evidence strings.Builder
	for _, src := range sources {
		fmt.Fprintf(&evidence, "[%s] %s\n%s\n\n", src.DisplayRef, src.Summary, src.Resolution)
	}

	return fmt.Sprintf(`You are drafting a candidate resolution for a support ticket.

**Approach**: %s

**Rules**
- Ground every substantive paragraph in the evidence below, citing it with its bracket token exactly as given, e.g. [INT:ABC-12] or [WEB:1].
- Never cite a source that is not listed.
- Never include destructive commands.
- Respond with the solution text only.

---
**Ticket**
%s
---
**Evidence**
%s---
**Your draft**`, directive.Instruction, ticketContext, evidence.String())
}
