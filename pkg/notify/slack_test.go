package notify

import (
	"context"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
)

type fakeSlack struct {
	channels []string
	calls    int
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.calls++
	f.channels = append(f.channels, channelID)
	return channelID, "ts", nil
}

func TestNewService_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewService(config.SlackConfig{}))
	assert.Nil(t, NewService(config.SlackConfig{BotToken: "xoxb"}))
}

func TestNilServiceIsNoOp(t *testing.T) {
	var s *Service
	// Must not panic.
	s.NotifyEscalation(context.Background(), "LENS-1", 0.1)
	s.NotifyValidationError(context.Background(), "LENS-1", "all providers failed")
}

func TestNotifyEscalation_Posts(t *testing.T) {
	api := &fakeSlack{}
	s := NewServiceWithAPI(api, "#triage")

	s.NotifyEscalation(context.Background(), "LENS-1", 0.12)
	require.Equal(t, 1, api.calls)
	assert.Equal(t, "#triage", api.channels[0])
}

func TestNotifyValidationError_Posts(t *testing.T) {
	api := &fakeSlack{}
	s := NewServiceWithAPI(api, "#triage")

	s.NotifyValidationError(context.Background(), "LENS-2", "chain exhausted")
	assert.Equal(t, 1, api.calls)
}
