// Package config resolves application configuration from the environment.
//
// Database pool settings live in pkg/database; everything else — ticket
// platform credentials, workflow engine address, model provider keys and the
// fallback chain, search and notification settings — is owned here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTaskQueue is the workflow engine task queue all workflows run on.
const DefaultTaskQueue = "assistiq-task-queue"

// defaultFallbackChain is the ordered list of model identifiers tried in
// sequence until one succeeds. Overridden by LLM_FALLBACK_CHAIN.
var defaultFallbackChain = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash",
	"gpt-4o-mini",
}

// JiraConfig holds ticket-platform connection settings.
type JiraConfig struct {
	URL                string
	Username           string
	APIToken           string
	AgentUserAccountID string
	ProjectKey         string
}

// Configured reports whether the minimum credential set is present.
func (j JiraConfig) Configured() bool {
	return j.URL != "" && j.Username != "" && j.APIToken != ""
}

// TemporalConfig holds workflow-engine connection settings.
type TemporalConfig struct {
	Address   string
	Namespace string
	TaskQueue string
}

// LLMConfig holds provider credentials and the fallback chain.
type LLMConfig struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	FallbackChain []string
}

// SearchConfig holds external web-search settings.
type SearchConfig struct {
	TavilyAPIKey string
	Enabled      bool
}

// SlackConfig holds optional escalation-notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Enabled reports whether Slack notices should be sent.
func (s SlackConfig) Enabled() bool {
	return s.BotToken != "" && s.Channel != ""
}

// Config is the resolved application configuration.
type Config struct {
	HTTPPort     string
	Jira         JiraConfig
	Temporal     TemporalConfig
	LLM          LLMConfig
	Search       SearchConfig
	Slack        SlackConfig
	PollInterval time.Duration
	PollMaxKeys  int
}

// LoadFromEnv builds a Config from environment variables with validated
// defaults.
func LoadFromEnv() (*Config, error) {
	pollInterval, err := time.ParseDuration(getEnvOrDefault("POLL_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}

	maxKeys, err := strconv.Atoi(getEnvOrDefault("POLL_MAX_KEYS", "50"))
	if err != nil || maxKeys < 1 {
		return nil, fmt.Errorf("invalid POLL_MAX_KEYS: must be a positive integer")
	}

	cfg := &Config{
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8000"),
		Jira: JiraConfig{
			URL:                strings.TrimRight(os.Getenv("JIRA_URL"), "/"),
			Username:           os.Getenv("JIRA_USERNAME"),
			APIToken:           os.Getenv("JIRA_API_TOKEN"),
			AgentUserAccountID: os.Getenv("JIRA_AGENT_USER_ACCOUNT_ID"),
			ProjectKey:         getEnvOrDefault("JIRA_PROJECT_KEY", "LENS"),
		},
		Temporal: TemporalConfig{
			Address:   getEnvOrDefault("TEMPORAL_ADDRESS", "localhost:7233"),
			Namespace: getEnvOrDefault("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnvOrDefault("TEMPORAL_TASK_QUEUE", DefaultTaskQueue),
		},
		LLM: LLMConfig{
			GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			FallbackChain: parseChain(os.Getenv("LLM_FALLBACK_CHAIN")),
		},
		Search: SearchConfig{
			TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
			Enabled:      getEnvOrDefault("ENABLE_WEB_SEARCH", "1") == "1",
		},
		Slack: SlackConfig{
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
			Channel:  os.Getenv("SLACK_CHANNEL"),
		},
		PollInterval: pollInterval,
		PollMaxKeys:  maxKeys,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency. Missing Jira credentials are not a
// startup error — the ticket client fails fast on first use instead, so the
// admin surface stays reachable for diagnosis.
func (c *Config) Validate() error {
	if len(c.LLM.FallbackChain) == 0 {
		return fmt.Errorf("LLM_FALLBACK_CHAIN resolved to an empty chain")
	}
	if c.Temporal.Address == "" {
		return fmt.Errorf("TEMPORAL_ADDRESS is required")
	}
	if c.PollInterval < time.Minute {
		return fmt.Errorf("POLL_INTERVAL must be at least 1m (got %s)", c.PollInterval)
	}
	return nil
}

func parseChain(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultFallbackChain...)
	}
	var chain []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			chain = append(chain, p)
		}
	}
	return chain
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
