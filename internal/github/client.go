package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

var (
	ErrRequestFailed   = errors.New("github request failed")
	ErrInvalidResponse = errors.New("invalid response from github")
)

const defaultBaseURL = "https://api.github.com"

type Config struct {
	Token   string
	Org     string
	Owner   string
	Repo    string
	BaseURL string
	Timeout time.Duration
}

// Client is a minimal GitHub Actions API client covering the surface the
// autoscaler consumes: queued-job counts, runner registrations, runner
// deletion, and registration tokens. Org-level when Org is set, otherwise
// repo-level.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	org        string
	owner      string
	repo       string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      cfg.Token,
		org:        cfg.Org,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
	}
}

func (c *Client) scope() string {
	if c.org != "" {
		return fmt.Sprintf("orgs/%s", c.org)
	}
	return fmt.Sprintf("repos/%s/%s", c.owner, c.repo)
}

type workflowRun struct {
	ID         int64 `json:"id"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type runsResponse struct {
	WorkflowRuns []workflowRun `json:"workflow_runs"`
}

type workflowJob struct {
	Status string   `json:"status"`
	Labels []string `json:"labels"`
}

type jobsResponse struct {
	Jobs []workflowJob `json:"jobs"`
}

type runnersResponse struct {
	Runners []models.Runner `json:"runners"`
}

// CountQueuedJobs returns the number of queued jobs targeting the given
// runner label. Job listings are per workflow run, so queued runs are
// enumerated first; a failure fetching one run's jobs is logged and the
// run skipped rather than failing the whole count.
func (c *Client) CountQueuedJobs(ctx context.Context, runnerLabel string) (int, error) {
	var runs runsResponse
	url := fmt.Sprintf("%s/%s/actions/runs?status=queued&per_page=100", c.baseURL, c.scope())
	if err := c.getJSON(ctx, url, &runs); err != nil {
		return 0, err
	}

	queued := 0
	for _, run := range runs.WorkflowRuns {
		jobsURL := c.jobsURL(run)
		if jobsURL == "" {
			continue
		}

		var jobs jobsResponse
		if err := c.getJSON(ctx, jobsURL, &jobs); err != nil {
			logger.Warnf("Failed to list jobs for run %d: %v", run.ID, err)
			continue
		}

		for _, job := range jobs.Jobs {
			if job.Status == "queued" && hasLabel(job.Labels, runnerLabel) {
				queued++
			}
		}
	}

	return queued, nil
}

func (c *Client) jobsURL(run workflowRun) string {
	if c.org != "" {
		// Org-level run listings span repositories; the jobs endpoint is
		// always repo-scoped.
		if run.Repository.FullName == "" {
			return ""
		}
		return fmt.Sprintf("%s/repos/%s/actions/runs/%d/jobs?per_page=100", c.baseURL, run.Repository.FullName, run.ID)
	}
	return fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d/jobs?per_page=100", c.baseURL, c.owner, c.repo, run.ID)
}

// ListRunners returns all registered runners for the configured scope.
func (c *Client) ListRunners(ctx context.Context) ([]models.Runner, error) {
	var resp runnersResponse
	url := fmt.Sprintf("%s/%s/actions/runners?per_page=100", c.baseURL, c.scope())
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Runners, nil
}

// DeleteRunner removes a runner registration by id.
func (c *Client) DeleteRunner(ctx context.Context, id int64) error {
	url := fmt.Sprintf("%s/%s/actions/runners/%d", c.baseURL, c.scope(), id)

	req, err := c.newRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: delete runner %d returned status %d", ErrRequestFailed, id, resp.StatusCode)
	}
	return nil
}

type registrationTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateRegistrationToken obtains a short-lived credential used by the
// runner lifecycle script to register new runners.
func (c *Client) CreateRegistrationToken(ctx context.Context) (string, time.Time, error) {
	url := fmt.Sprintf("%s/%s/actions/runners/registration-token", c.baseURL, c.scope())

	req, err := c.newRequest(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", time.Time{}, fmt.Errorf("%w: registration token returned status %d", ErrRequestFailed, resp.StatusCode)
	}

	var token registrationTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return token.Token, token.ExpiresAt, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d from %s", ErrRequestFailed, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
