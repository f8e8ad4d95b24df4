package api

// jiraWebhookPayload is the subset of the ticket-platform webhook body the
// agent reacts to.
type jiraWebhookPayload struct {
	WebhookEvent string `json:"webhookEvent"`
	Issue        struct {
		Key string `json:"key"`
	} `json:"issue"`
}

// saveDraftRequest stores a human-authored draft.
type saveDraftRequest struct {
	DraftText string `json:"draft_text"`
	Author    string `json:"author,omitempty"`
}

// postSolutionRequest posts a human-approved solution.
type postSolutionRequest struct {
	SolutionText     string   `json:"solution_text"`
	LLMProviderModel string   `json:"llm_provider_model,omitempty"`
	Sources          []string `json:"sources,omitempty"`
	Reasoning        string   `json:"reasoning,omitempty"`
}
