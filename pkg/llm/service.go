package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// AllFailedModel is the sentinel provider name reported when the whole
// fallback chain is exhausted.
const AllFailedModel = "all_failed"

// Retry policy per provider.
const (
	maxAttemptsPerProvider = 3
	backoffBase            = 2 * time.Second
)

// errorKind classifies provider failures for the retry policy.
type errorKind int

const (
	errKindRateLimit errorKind = iota
	errKindAuth
	errKindOther
)

func classifyError(err error) errorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "resource_exhausted"):
		return errKindRateLimit
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "unauthenticated") ||
		strings.Contains(msg, "permission denied") || strings.Contains(msg, "api key"):
		return errKindAuth
	default:
		return errKindOther
	}
}

// providerFactory builds a provider for a model name. Replaceable in tests.
type providerFactory func(ctx context.Context, modelName string, cfg config.LLMConfig) (Provider, error)

// Service orchestrates calls across the configured fallback chain.
type Service struct {
	cfg     config.LLMConfig
	factory providerFactory

	mu        sync.Mutex
	providers map[string]Provider

	// sleep is indirected so retry timing is testable.
	sleep func(time.Duration)
}

// NewService creates a model service over the configured chain.
func NewService(cfg config.LLMConfig) *Service {
	return &Service{
		cfg:       cfg,
		factory:   NewProvider,
		providers: make(map[string]Provider),
		sleep:     time.Sleep,
	}
}

// newServiceWithFactory is the test seam.
func newServiceWithFactory(cfg config.LLMConfig, factory providerFactory) *Service {
	s := NewService(cfg)
	s.factory = factory
	return s
}

// provider lazily initializes and caches the provider for a model name.
func (s *Service) provider(ctx context.Context, modelName string) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.providers[modelName]; ok {
		return p, nil
	}
	p, err := s.factory(ctx, modelName, s.cfg)
	if err != nil {
		return nil, err
	}
	s.providers[modelName] = p
	return p, nil
}

func backoffDelay(attempt int) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(time.Second))
	return backoffBase*time.Duration(1<<attempt) + jitter
}

// generateWithRetry runs one provider under the retry policy: rate limits
// retry with exponential backoff, auth errors abort the provider
// immediately, anything else gets one retry.
func (s *Service) generateWithRetry(ctx context.Context, p Provider, prompt string, images [][]byte, jsonMode bool) (string, error) {
	var lastErr error
	otherRetries := 0
	for attempt := 0; attempt < maxAttemptsPerProvider; attempt++ {
		out, err := p.Generate(ctx, prompt, images, jsonMode)
		if err == nil {
			return out, nil
		}
		lastErr = err

		switch classifyError(err) {
		case errKindAuth:
			return "", fmt.Errorf("auth error from %s: %w", p.Name(), err)
		case errKindRateLimit:
			// retry until attempts run out
		case errKindOther:
			if otherRetries >= 1 {
				return "", err
			}
			otherRetries++
		}

		if attempt < maxAttemptsPerProvider-1 {
			delay := backoffDelay(attempt)
			slog.Warn("Provider call failed, retrying",
				"model", p.Name(), "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			s.sleep(delay)
		}
	}
	return "", lastErr
}

// rawVerdict is the JSON shape the validation prompt asks for.
type rawVerdict struct {
	Module           string   `json:"module"`
	ValidationStatus string   `json:"validation_status"`
	MissingFields    []string `json:"missing_fields"`
	Confidence       float64  `json:"confidence"`
}

// Validate sends the scrubbed ticket bundle and knowledge base down the
// chain until a provider returns parsable JSON. A malformed response gets
// one retry on the same provider before falling over; an exhausted chain
// yields the sentinel error verdict, never a Go error.
func (s *Service) Validate(ctx context.Context, bundle string, kb models.KnowledgeBase, images [][]byte) models.LLMVerdict {
	prompt, err := buildValidationPrompt(bundle, kb)
	if err != nil {
		slog.Error("Failed to build validation prompt", "error", err)
		return sentinelVerdict(err.Error())
	}

	for _, modelName := range s.cfg.FallbackChain {
		log := slog.With("model", modelName)
		p, err := s.provider(ctx, modelName)
		if err != nil {
			log.Warn("Skipping unavailable provider", "error", err)
			continue
		}

		imgs := images
		if len(imgs) > 0 && !p.SupportsImages() {
			log.Warn("Provider does not support multimodal input, sending text only")
			imgs = nil
		}

		// One retry for malformed JSON on the same provider.
		for parseAttempt := 0; parseAttempt < 2; parseAttempt++ {
			raw, err := s.generateWithRetry(ctx, p, prompt, imgs, true)
			if err != nil {
				log.Warn("Provider failed, advancing chain", "error", err)
				break
			}

			verdict, err := parseVerdict(raw)
			if err != nil {
				log.Warn("Malformed JSON verdict", "attempt", parseAttempt+1, "error", err)
				continue
			}
			verdict.LLMProviderModel = modelName
			log.Info("Validation verdict received",
				"status", verdict.ValidationStatus, "confidence", verdict.Confidence)
			return verdict
		}
	}

	slog.Error("All LLM providers in the fallback chain failed")
	return sentinelVerdict("All LLM providers failed.")
}

func sentinelVerdict(msg string) models.LLMVerdict {
	return models.LLMVerdict{
		Module:           "Unknown",
		ValidationStatus: models.StatusError,
		MissingFields:    []string{},
		Confidence:       0.0,
		LLMProviderModel: AllFailedModel,
		ErrorMessage:     msg,
	}
}

func parseVerdict(raw string) (models.LLMVerdict, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var rv rawVerdict
	if err := json.Unmarshal([]byte(cleaned), &rv); err != nil {
		return models.LLMVerdict{}, fmt.Errorf("parse verdict JSON: %w", err)
	}

	status := models.ValidationStatus(rv.ValidationStatus)
	switch status {
	case models.StatusComplete, models.StatusIncomplete, models.StatusError:
	default:
		return models.LLMVerdict{}, fmt.Errorf("unexpected validation_status %q", rv.ValidationStatus)
	}

	missing := rv.MissingFields
	if missing == nil {
		missing = []string{}
	}
	return models.LLMVerdict{
		Module:           rv.Module,
		ValidationStatus: status,
		MissingFields:    missing,
		Confidence:       rv.Confidence,
	}, nil
}

// SynthesizeAlternatives drafts n solution alternatives over the same
// evidence, one approach directive each. Confidence is left at zero — the
// resolution pipeline scores it afterwards. Alternatives whose entire chain
// failed are returned with empty text so the caller can apply its local
// fallback.
func (s *Service) SynthesizeAlternatives(ctx context.Context, ticketContext string, sources []models.Source, n int) []models.Solution {
	if n <= 0 {
		n = len(ApproachDirectives)
	}

	sourceRefs := make([]string, len(sources))
	for i, src := range sources {
		sourceRefs[i] = src.DisplayRef
	}

	solutions := make([]models.Solution, 0, n)
	for i := 0; i < n; i++ {
		directive := ApproachDirectives[i%len(ApproachDirectives)]
		prompt := buildSynthesisPrompt(ticketContext, sources, directive)

		text, modelName := s.firstSuccess(ctx, prompt)
		solutions = append(solutions, models.Solution{
			SolutionText:     text,
			Confidence:       0.0,
			LLMProviderModel: modelName,
			Sources:          append([]string(nil), sourceRefs...),
			Reasoning:        "Approach: " + directive.Label,
		})
	}
	return solutions
}

// firstSuccess walks the chain for a free-text generation.
func (s *Service) firstSuccess(ctx context.Context, prompt string) (string, string) {
	for _, modelName := range s.cfg.FallbackChain {
		p, err := s.provider(ctx, modelName)
		if err != nil {
			slog.Warn("Skipping unavailable provider", "model", modelName, "error", err)
			continue
		}
		text, err := s.generateWithRetry(ctx, p, prompt, nil, false)
		if err != nil {
			slog.Warn("Synthesis failed, advancing chain", "model", modelName, "error", err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, modelName
		}
	}
	return "", AllFailedModel
}
