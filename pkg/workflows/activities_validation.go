package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ruchirkulkarni22/LensOra/pkg/compliance"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/nlp"
	"github.com/ruchirkulkarni22/LensOra/pkg/priority"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
)

// Vagueness heuristic bounds.
const (
	vagueUniqueWordFloor = 12
	vagueErrorOnlyFloor  = 5
)

// FetchTicketContext pulls summary, description and attachments from the
// ticket platform and bundles them into a single text block. Images pass
// through verbatim for vision-capable providers; other attachments are
// extracted to text and appended under a delimiter header.
func (a *Activities) FetchTicketContext(ctx context.Context, ticketKey string) (models.TicketContext, error) {
	log := slog.With("ticket_key", ticketKey)
	log.Info("Fetching ticket context")

	details, err := a.tickets.GetTicketDetails(ctx, ticketKey)
	if err != nil {
		return models.TicketContext{}, fmt.Errorf("fetch ticket %s: %w", ticketKey, err)
	}

	textParts := []string{
		"Ticket Key: " + ticketKey,
		"Summary: " + details.Summary,
		"Description: " + details.Description,
	}

	var images [][]byte
	for _, att := range details.ImageAttachments {
		log.Info("Downloading image attachment", "filename", att.Filename)
		data, err := a.tickets.DownloadAttachment(ctx, att.URL)
		if err != nil {
			log.Warn("Image download failed, skipping", "filename", att.Filename, "error", err)
			continue
		}
		images = append(images, data)
	}

	for _, att := range details.OtherAttachments {
		log.Info("Processing non-image attachment", "filename", att.Filename)
		data, err := a.tickets.DownloadAttachment(ctx, att.URL)
		if err != nil {
			log.Warn("Attachment download failed, skipping", "filename", att.Filename, "error", err)
			continue
		}
		extracted := a.extract.ExtractText(ctx, data, att.MimeType)
		textParts = append(textParts, fmt.Sprintf("\n--- Attachment: %s ---\n%s", att.Filename, extracted))
	}

	return models.TicketContext{
		TicketKey:        ticketKey,
		BundledText:      strings.Join(textParts, "\n"),
		ReporterID:       details.ReporterID,
		ImageAttachments: images,
	}, nil
}

// GetLLMVerdict scrubs the bundle, asks the model chain for a verdict, then
// enriches it with priority, vagueness and duplicate signals. Priority runs
// over the raw (unscrubbed) text — redaction tokens would otherwise mask
// keywords.
func (a *Activities) GetLLMVerdict(ctx context.Context, rawContext any) (models.LLMVerdict, error) {
	ticketContext, err := InflateTicketContext(rawContext)
	if err != nil {
		return models.LLMVerdict{}, err
	}
	log := slog.With("ticket_key", ticketContext.TicketKey)

	kb, err := a.store.GetKnowledgeBase(ctx)
	if err != nil {
		return models.LLMVerdict{}, fmt.Errorf("load knowledge base: %w", err)
	}

	scrubbed, redactions := compliance.Scrub(ticketContext.BundledText)
	if redactions > 0 {
		log.Info("Compliance scrub applied", "redactions", redactions)
	}

	verdict := a.model.Validate(ctx, scrubbed, kb, ticketContext.ImageAttachments)

	// Keyword classification runs regardless of the model outcome: the hint
	// backfills the module when the model could not classify, and extracted
	// entities give reviewers the structured values found in the raw text.
	verdict.ContextHint = nlp.ClassifyContext(ticketContext.BundledText)
	if verdict.ValidationStatus != models.StatusError &&
		(verdict.Module == "" || verdict.Module == "Unknown") {
		log.Info("Backfilling module from keyword context hint", "hint", verdict.ContextHint)
		verdict.Module = verdict.ContextHint
	}
	if entities := nlp.ExtractEntities(ticketContext.BundledText); len(entities) > 0 {
		verdict.Entities = entities
	}

	prio, reason := priority.Classify("", ticketContext.BundledText)
	verdict.Priority = prio
	log.Debug("Priority classified", "priority", prio, "reason", reason)

	if vague, why := isVague(ticketContext.BundledText); vague {
		verdict.IsVague = true
		verdict.VaguenessReason = why
	}

	dup, err := a.retrieve.FindPotentialDuplicate(ctx, ticketContext.BundledText, rag.DuplicateThreshold)
	if err != nil {
		log.Warn("Duplicate detection failed", "error", err)
	} else if dup != nil {
		verdict.DuplicateOf = dup.TicketKey
		log.Info("Potential duplicate detected", "duplicate_of", dup.TicketKey, "distance", dup.Distance)
	}

	return verdict, nil
}

// isVague flags tickets with too little information density to resolve.
func isVague(text string) (bool, string) {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if isAlphabetic(w) {
			words[w] = true
		}
	}
	if len(words) < vagueUniqueWordFloor {
		return true, "Low information density"
	}
	if words["error"] && len(words) < vagueErrorOnlyFloor {
		return true, "Error-only report with no detail"
	}
	return false, ""
}

func isAlphabetic(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(w) > 0
}

// LogValidationResult upserts the verdict; the timeline event rides in the
// same transaction.
func (a *Activities) LogValidationResult(ctx context.Context, ticketKey string, rawVerdict any) (string, error) {
	verdict, err := InflateVerdict(rawVerdict)
	if err != nil {
		return "", err
	}
	if err := a.store.UpsertValidation(ctx, ticketKey, verdict); err != nil {
		return "", fmt.Errorf("log validation for %s: %w", ticketKey, err)
	}
	if verdict.ValidationStatus == models.StatusError {
		a.notifier.NotifyValidationError(ctx, ticketKey, verdict.ErrorMessage)
	}
	return fmt.Sprintf("Logged validation verdict for %s using model %s.", ticketKey, verdict.LLMProviderModel), nil
}

// CommentAndReassign notifies the reporter about missing fields and hands
// the ticket back. Reassignment failure degrades to comment-only and is not
// an activity failure.
func (a *Activities) CommentAndReassign(ctx context.Context, ticketKey string, rawVerdict any, reporterID string) (string, error) {
	verdict, err := InflateVerdict(rawVerdict)
	if err != nil {
		return "", err
	}

	missing := strings.Join(verdict.MissingFields, ", ")
	if missing == "" {
		missing = "None"
	}
	message := fmt.Sprintf(
		"Hello,\n\nThis ticket (module: %s) is incomplete. Please add the missing field(s):\n- %s\n\n"+
			"Once updated, the validation agent will re-check it automatically.%s",
		verdict.Module, missing, jira.Signature)

	if reporterID == "" {
		slog.Warn("No reporter found, adding comment only", "ticket_key", ticketKey)
		if err := a.tickets.AddComment(ctx, ticketKey, message); err != nil {
			return "", fmt.Errorf("comment on %s: %w", ticketKey, err)
		}
		return fmt.Sprintf("Ticket %s commented on successfully (no reassignment).", ticketKey), nil
	}

	if err := a.tickets.CommentAndReassign(ctx, ticketKey, message, reporterID); err != nil {
		slog.Error("Reassignment failed, falling back to comment-only", "ticket_key", ticketKey, "error", err)
		if err := a.tickets.AddComment(ctx, ticketKey, message); err != nil {
			return "", fmt.Errorf("fallback comment on %s: %w", ticketKey, err)
		}
		return fmt.Sprintf("Ticket %s commented on, but reassignment failed.", ticketKey), nil
	}
	return fmt.Sprintf("Ticket %s commented on and reassigned to reporter.", ticketKey), nil
}

// NotifyTicketInQueue tells the reporter the ticket passed validation.
func (a *Activities) NotifyTicketInQueue(ctx context.Context, ticketKey string) (string, error) {
	message := "Hello,\n\nYour ticket has passed automated validation and entered the resolution queue. " +
		"You will be notified when a proposed solution is posted." + jira.Signature

	if err := a.tickets.AddComment(ctx, ticketKey, message); err != nil {
		return "", fmt.Errorf("notify %s: %w", ticketKey, err)
	}
	return fmt.Sprintf("Ticket %s notified that it entered the resolution queue.", ticketKey), nil
}
