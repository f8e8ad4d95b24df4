// Package jira is the narrow client for the ticket platform: issue fetch,
// bounded project search, comments, reassignment and attachment download.
// Everything richer than that is out of scope for the agent.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruchirkulkarni22/LensOra/pkg/version"
)

// Signature is the constant suffix appended to every comment the agent
// posts, identifying the system as the author.
const Signature = "\n\n— AssistIQ Agent"

// ErrNotConfigured is returned when the client is used without credentials.
var ErrNotConfigured = fmt.Errorf("jira credentials are not configured")

// Attachment describes one ticket attachment.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"content"`
	MimeType string `json:"mimeType"`
}

// TicketDetails is the bundle the validation pipeline needs from one issue.
type TicketDetails struct {
	Summary          string
	Description      string
	ReporterID       string
	ImageAttachments []Attachment
	OtherAttachments []Attachment
	UpdatedAt        time.Time
}

// TicketRef is a lightweight search hit used by the polling loop.
type TicketRef struct {
	Key       string
	UpdatedAt time.Time
}

// Client is the subset of ticket-platform operations the pipelines use.
type Client interface {
	GetTicketDetails(ctx context.Context, ticketKey string) (TicketDetails, error)
	SearchTickets(ctx context.Context, projectKey string, maxResults int) ([]TicketRef, error)
	DownloadAttachment(ctx context.Context, attachmentURL string) ([]byte, error)
	AddComment(ctx context.Context, ticketKey, comment string) error
	CommentAndReassign(ctx context.Context, ticketKey, comment, assigneeAccountID string) error
}

// HTTPClient talks to the Jira Cloud REST API with basic auth.
type HTTPClient struct {
	baseURL  string
	username string
	apiToken string
	client   *http.Client
}

// NewHTTPClient creates a client. Credentials are checked on use, not here,
// so the admin surface can start without them.
func NewHTTPClient(baseURL, username, apiToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// OverrideHTTPClientForTest replaces the HTTP client. Testing only.
func (c *HTTPClient) OverrideHTTPClientForTest(client *http.Client) {
	c.client = client
}

func (c *HTTPClient) configured() bool {
	return c.baseURL != "" && c.username != "" && c.apiToken != ""
}

// jira timestamp format, e.g. 2024-03-15T10:22:01.000+0000
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

type issueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Updated     string `json:"updated"`
		Reporter    *struct {
			AccountID string `json:"accountId"`
		} `json:"reporter"`
		Attachment []Attachment `json:"attachment"`
	} `json:"fields"`
}

// GetTicketDetails fetches summary, description, reporter and attachments,
// splitting attachments by image/non-image mime type.
func (c *HTTPClient) GetTicketDetails(ctx context.Context, ticketKey string) (TicketDetails, error) {
	var details TicketDetails
	if !c.configured() {
		return details, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=summary,description,reporter,attachment,updated",
		c.baseURL, url.PathEscape(ticketKey))

	var issue issueResponse
	if err := c.getJSON(ctx, endpoint, &issue); err != nil {
		return details, fmt.Errorf("fetch issue %s: %w", ticketKey, err)
	}

	details.Summary = issue.Fields.Summary
	details.Description = issue.Fields.Description
	if issue.Fields.Reporter != nil {
		details.ReporterID = issue.Fields.Reporter.AccountID
	}
	if issue.Fields.Updated != "" {
		if ts, err := time.Parse(jiraTimeLayout, issue.Fields.Updated); err == nil {
			details.UpdatedAt = ts
		}
	}
	for _, att := range issue.Fields.Attachment {
		if strings.HasPrefix(att.MimeType, "image/") {
			details.ImageAttachments = append(details.ImageAttachments, att)
		} else {
			details.OtherAttachments = append(details.OtherAttachments, att)
		}
	}
	return details, nil
}

type searchResponse struct {
	Issues []issueResponse `json:"issues"`
}

// SearchTickets returns up to maxResults ticket refs for a project, with
// their last-updated timestamps.
func (c *HTTPClient) SearchTickets(ctx context.Context, projectKey string, maxResults int) ([]TicketRef, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}

	jql := url.QueryEscape(fmt.Sprintf("project = %s", projectKey))
	endpoint := fmt.Sprintf("%s/rest/api/2/search?jql=%s&maxResults=%d&fields=updated",
		c.baseURL, jql, maxResults)

	var parsed searchResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return nil, fmt.Errorf("search project %s: %w", projectKey, err)
	}

	refs := make([]TicketRef, 0, len(parsed.Issues))
	for _, issue := range parsed.Issues {
		ref := TicketRef{Key: issue.Key}
		if issue.Fields.Updated != "" {
			if ts, err := time.Parse(jiraTimeLayout, issue.Fields.Updated); err == nil {
				ref.UpdatedAt = ts
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// DownloadAttachment fetches raw attachment bytes.
func (c *HTTPClient) DownloadAttachment(ctx context.Context, attachmentURL string) ([]byte, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build attachment request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// AddComment posts a comment. This is the safe fallback action when
// reassignment is impossible.
func (c *HTTPClient) AddComment(ctx context.Context, ticketKey, comment string) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/comment", c.baseURL, url.PathEscape(ticketKey))
	return c.postJSON(ctx, http.MethodPost, endpoint, map[string]string{"body": comment})
}

// CommentAndReassign adds the comment first (more likely to succeed), then
// reassigns by accountId via the dedicated assignee endpoint. A reassignment
// failure is returned to the caller, which degrades to comment-only.
func (c *HTTPClient) CommentAndReassign(ctx context.Context, ticketKey, comment, assigneeAccountID string) error {
	if err := c.AddComment(ctx, ticketKey, comment); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/assignee", c.baseURL, url.PathEscape(ticketKey))
	if err := c.postJSON(ctx, http.MethodPut, endpoint, map[string]string{"accountId": assigneeAccountID}); err != nil {
		return fmt.Errorf("reassign %s to %s: %w", ticketKey, assigneeAccountID, err)
	}
	return nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) postJSON(ctx context.Context, method, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return checkStatus(resp)
}

func (c *HTTPClient) decorate(req *http.Request) {
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("jira returned %d for %s %s", resp.StatusCode, resp.Request.Method, resp.Request.URL.Path)
}
