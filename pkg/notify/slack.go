// Package notify delivers optional Slack notices for situations that need a
// human: low-confidence escalations and validation pipeline errors.
//
// Nil-safe: all methods are no-ops when the service is nil, so callers wire
// it unconditionally.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
)

// slackAPI is the subset of the Slack client the service uses.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Service posts escalation notices to a single channel.
type Service struct {
	api     slackAPI
	channel string
	logger  *slog.Logger
}

// NewService creates a notifier. Returns nil when Slack is not configured.
func NewService(cfg config.SlackConfig) *Service {
	if !cfg.Enabled() {
		return nil
	}
	return &Service{
		api:     slack.New(cfg.BotToken),
		channel: cfg.Channel,
		logger:  slog.Default().With("component", "slack-notify"),
	}
}

// NewServiceWithAPI is the test seam.
func NewServiceWithAPI(api slackAPI, channel string) *Service {
	return &Service{api: api, channel: channel, logger: slog.Default().With("component", "slack-notify")}
}

// NotifyEscalation flags a ticket whose generated alternatives fell below
// the confidence floor. Fail-open: errors are logged, never returned.
func (s *Service) NotifyEscalation(ctx context.Context, ticketKey string, lowestConfidence float64) {
	if s == nil {
		return
	}
	text := fmt.Sprintf(":rotating_light: Ticket *%s* needs human attention — best generated solution confidence is %.2f.",
		ticketKey, lowestConfidence)
	s.post(ctx, text)
}

// NotifyValidationError flags a ticket whose validation ended in the error
// state (model chain exhausted or pipeline failure).
func (s *Service) NotifyValidationError(ctx context.Context, ticketKey, detail string) {
	if s == nil {
		return
	}
	text := fmt.Sprintf(":warning: Validation for ticket *%s* failed: %s", ticketKey, detail)
	s.post(ctx, text)
}

func (s *Service) post(ctx context.Context, text string) {
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		s.logger.Error("Slack notification failed", "error", err)
	}
}
