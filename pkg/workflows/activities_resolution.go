package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ruchirkulkarni22/LensOra/pkg/guardrail"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/llm"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
	"github.com/ruchirkulkarni22/LensOra/pkg/websearch"
)

// Resolution pipeline bounds.
const (
	// lowInfoTextFloor short-circuits generation for tickets that carry too
	// little text to ground a solution.
	lowInfoTextFloor = 120
	// duplicatePreviewLen bounds the resolution preview returned for
	// duplicate short-circuits.
	duplicatePreviewLen = 600
	// externalMaxResults bounds the augmentation search.
	externalMaxResults = 3
	// synthesisAlternatives is the number of drafted alternatives.
	synthesisAlternatives = 3
)

// followUpQuestions is the fixed question set returned for low-info tickets.
var followUpQuestions = []string{
	"Which environment does this occur in (production, test, development)?",
	"What is the exact error message or code you are seeing?",
	"What changed recently (deployments, configuration, data loads)?",
	"How many users or transactions are impacted?",
}

// heuristicFallbackText is the locally synthesized guidance used when every
// model alternative came back empty.
const heuristicFallbackText = "Preliminary heuristic guidance (LLM unavailable):\n" +
	"1. Reproduce and capture exact error/log snippet.\n" +
	"2. Identify recent changes (deployments/config).\n" +
	"3. Compare working vs failing environment.\n" +
	"4. Collect impact scope (users/transactions).\n" +
	"5. Escalate with diagnostics if unresolved."

// LocalFallbackModel tags heuristic solutions synthesized without a model.
const LocalFallbackModel = "local-fallback"

// FindAndSynthesizeSolutions runs the full retrieval-augmented generation
// pass for one ticket: short-circuits, retrieval, clustering, optional
// external augmentation, synthesis, guardrails and confidence scoring.
func (a *Activities) FindAndSynthesizeSolutions(ctx context.Context, rawInput any) (ResolutionResult, error) {
	input, err := inflate[ResolutionInput](rawInput)
	if err != nil {
		return ResolutionResult{}, err
	}
	log := slog.With("ticket_key", input.TicketKey)

	// Duplicate short-circuit: a known-solved near-identical ticket needs no
	// synthesis, just the existing resolution.
	if result, ok, err := a.duplicateShortCircuit(ctx, input); err != nil {
		return ResolutionResult{}, err
	} else if ok {
		return result, nil
	}

	// Low-info short-circuit: don't burn a model call on an empty ticket.
	if len(input.TicketBundledText) < lowInfoTextFloor {
		log.Info("Ticket text too short for synthesis, requesting more info",
			"length", len(input.TicketBundledText))
		return ResolutionResult{
			Status:            ResolutionStatusNeedsMoreInfo,
			TicketKey:         input.TicketKey,
			TicketContext:     input.TicketBundledText,
			FollowUpQuestions: followUpQuestions,
		}, nil
	}

	// Retrieve internal evidence.
	maxDist := rag.DefaultMaxDistance
	similar, err := a.retrieve.FindSimilar(ctx, input.TicketBundledText, rag.DefaultTopK, &maxDist)
	if err != nil {
		return ResolutionResult{}, fmt.Errorf("retrieve similar tickets: %w", err)
	}
	distances := make([]float64, len(similar))
	for i, t := range similar {
		distances[i] = t.Distance
	}

	// External augmentation when internal evidence is weak. Failures here
	// are non-fatal; synthesis proceeds with whatever evidence exists.
	var external []models.Source
	if websearch.NeedExternal(distances) {
		log.Info("Triggering external augmentation", "internal_hits", len(similar))
		external = a.augmentExternal(ctx, input.TicketBundledText)
	}

	// Cluster internal hits down to representatives.
	internal, err := a.clusterInternal(ctx, similar)
	if err != nil {
		return ResolutionResult{}, err
	}
	if len(similar) > len(internal) {
		log.Info("Clustered internal evidence",
			"hits", len(similar), "representatives", len(internal))
	}

	// Assign display refs: internal first, then external 1-based.
	for i := range internal {
		internal[i].DisplayRef = "INT:" + internal[i].TicketKey
	}
	for i := range external {
		external[i].DisplayRef = fmt.Sprintf("WEB:%d", i+1)
	}
	combined := append(append([]models.Source{}, internal...), external...)

	if len(combined) == 0 {
		log.Warn("No internal or external sources available")
		return ResolutionResult{
			Status:    ResolutionStatusSuccess,
			TicketKey: input.TicketKey,
			Solutions: []models.Solution{{
				SolutionText: "No internal knowledge available and external search produced no actionable context. " +
					"Provide generic triage: (1) Reproduce issue (2) Collect logs (3) Capture recent config changes (4) Escalate with performance diagnostics.",
				Confidence:       0.0,
				LLMProviderModel: "no-context",
				Sources:          []string{},
				GuardrailValid:   true,
			}},
			TicketContext: input.TicketBundledText,
			Escalate:      true,
		}, nil
	}

	solutions := a.model.SynthesizeAlternatives(ctx, input.TicketBundledText, combined, synthesisAlternatives)

	// Score and guardrail each alternative.
	externalUsed := len(external) > 0
	baseConf := ComputeBaseConfidence(distances, 1.0, externalUsed)

	internalKeys := make([]string, len(internal))
	for i, src := range internal {
		internalKeys[i] = src.TicketKey
	}
	externalIndices := make([]string, len(external))
	for i := range external {
		externalIndices[i] = fmt.Sprintf("%d", i+1)
	}

	for i := range solutions {
		cleaned, issues, valid := guardrail.ValidateSolution(solutions[i].SolutionText, internalKeys, externalIndices)
		conf := baseConf * rankDecayFor(i)
		if !valid {
			conf = math.Min(conf, invalidCap)
		}
		solutions[i].SolutionText = cleaned
		solutions[i].Confidence = round4(conf)
		solutions[i].ValidationIssues = issues
		solutions[i].GuardrailValid = valid
	}

	// Local heuristic fallback when every model alternative came back empty.
	if allEmpty(solutions) {
		log.Warn("All model solutions empty, injecting heuristic fallback")
		solutions = []models.Solution{{
			SolutionText:     heuristicFallbackText,
			Confidence:       round4(baseConf * fallbackDiscount),
			LLMProviderModel: LocalFallbackModel,
			Sources:          []string{},
			Reasoning:        "Heuristic fallback due to LLM failure",
			ValidationIssues: []models.GuardrailIssue{},
			GuardrailValid:   true,
		}}
	}

	escalate := false
	for _, sol := range solutions {
		if sol.Confidence < 0.2 {
			escalate = true
			break
		}
	}

	if err := a.store.AddEvent(ctx, input.TicketKey, models.EventSolutionsGenerated,
		fmt.Sprintf("Generated %d solution alternative(s)", len(solutions))); err != nil {
		log.Warn("Failed to record generation event", "error", err)
	}

	return ResolutionResult{
		Status:        ResolutionStatusSuccess,
		TicketKey:     input.TicketKey,
		Solutions:     solutions,
		TicketContext: input.TicketBundledText,
		Escalate:      escalate,
	}, nil
}

// duplicateShortCircuit returns the stored resolution preview when the
// ticket's validation marked it a duplicate of a solved ticket.
func (a *Activities) duplicateShortCircuit(ctx context.Context, input ResolutionInput) (ResolutionResult, bool, error) {
	validation, err := a.store.GetValidation(ctx, input.TicketKey)
	if err != nil {
		return ResolutionResult{}, false, fmt.Errorf("load validation for %s: %w", input.TicketKey, err)
	}
	if validation == nil || validation.DuplicateOf == "" {
		return ResolutionResult{}, false, nil
	}

	solved, err := a.store.GetSolvedTicket(ctx, validation.DuplicateOf)
	if err != nil {
		return ResolutionResult{}, false, err
	}
	preview := ""
	if solved != nil {
		preview = solved.Resolution
		if len(preview) > duplicatePreviewLen {
			preview = preview[:duplicatePreviewLen]
		}
	}

	if err := a.store.AddEvent(ctx, input.TicketKey, models.EventDuplicateShortCircuit,
		"Short-circuited: duplicate of "+validation.DuplicateOf); err != nil {
		slog.Warn("Failed to record duplicate event", "ticket_key", input.TicketKey, "error", err)
	}

	return ResolutionResult{
		Status:            ResolutionStatusDuplicate,
		TicketKey:         input.TicketKey,
		DuplicateOf:       validation.DuplicateOf,
		ResolutionPreview: preview,
	}, true, nil
}

// augmentExternal searches and ingests external evidence. All failures are
// swallowed: augmentation is best-effort.
func (a *Activities) augmentExternal(ctx context.Context, ticketText string) []models.Source {
	raw, err := a.search.Search(ctx, ticketText, externalMaxResults)
	if err != nil {
		slog.Warn("External search failed, continuing with internal only", "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	sources, err := a.ingest.IngestResults(ctx, raw)
	if err != nil {
		slog.Warn("External ingest failed, continuing with internal only", "error", err)
		return nil
	}
	return sources
}

// clusterInternal reduces retrieved hits to cluster representatives,
// preserving ascending-distance order.
func (a *Activities) clusterInternal(ctx context.Context, similar []models.SimilarTicket) ([]models.Source, error) {
	if len(similar) == 0 {
		return nil, nil
	}

	texts := make([]string, len(similar))
	for i, t := range similar {
		texts[i] = t.Summary + "\n" + t.Resolution
	}
	embeddings, err := a.retrieve.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed retrieved tickets for clustering: %w", err)
	}

	reps := rag.ClusterRepresentatives(embeddings, rag.ClusterSimilarityThreshold)
	sources := make([]models.Source, 0, len(reps))
	for _, idx := range reps {
		t := similar[idx]
		dist := t.Distance
		sources = append(sources, models.Source{
			SourceType: models.SourceInternal,
			TicketKey:  t.TicketKey,
			Summary:    t.Summary,
			Resolution: t.Resolution,
			Distance:   &dist,
		})
	}
	return sources, nil
}

func allEmpty(solutions []models.Solution) bool {
	for _, s := range solutions {
		if strings.TrimSpace(s.SolutionText) != "" && s.LLMProviderModel != llm.AllFailedModel {
			return false
		}
	}
	return true
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// PostSolutionToTicket posts a human-approved solution as a comment with the
// agent signature.
func (a *Activities) PostSolutionToTicket(ctx context.Context, ticketKey string, rawSolution any) (string, error) {
	solution, err := InflateSynthesizedSolution(rawSolution)
	if err != nil {
		return "", err
	}

	comment := fmt.Sprintf(
		"Hello,\n\nBased on an analysis of similar past issues, here is a suggested resolution for your ticket:\n\n"+
			"---\n%s\n---\n\nThis is an automated suggestion. Please review before executing any steps.%s",
		solution.SolutionText, jira.Signature)

	if err := a.tickets.AddComment(ctx, ticketKey, comment); err != nil {
		return "", fmt.Errorf("post solution to %s: %w", ticketKey, err)
	}
	return fmt.Sprintf("Successfully posted solution to ticket %s.", ticketKey), nil
}

// LogResolution appends the resolution audit row and timeline event.
func (a *Activities) LogResolution(ctx context.Context, ticketKey string, rawSolution any) (string, error) {
	solution, err := InflateSynthesizedSolution(rawSolution)
	if err != nil {
		return "", err
	}

	if err := a.store.LogResolution(ctx, models.ResolutionRecord{
		TicketKey:        ticketKey,
		SolutionPosted:   solution.SolutionText,
		LLMProviderModel: solution.LLMProviderModel,
		Sources:          solution.Sources,
		Reasoning:        solution.Reasoning,
	}); err != nil {
		return "", fmt.Errorf("log resolution for %s: %w", ticketKey, err)
	}

	if err := a.store.AddEvent(ctx, ticketKey, models.EventSolutionPosted,
		"Solution posted using model "+solution.LLMProviderModel); err != nil {
		slog.Warn("Failed to record solution event", "ticket_key", ticketKey, "error", err)
	}
	return fmt.Sprintf("Successfully logged resolution for ticket %s.", ticketKey), nil
}
