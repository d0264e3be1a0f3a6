package digitalocean

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/forgeci/runner-autoscaler/internal/logger"
)

var (
	ErrRequestFailed   = errors.New("digitalocean request failed")
	ErrInvalidResponse = errors.New("invalid response from digitalocean")
	ErrWorkerNotFound  = errors.New("worker not found in app spec")
	ErrSpecConflict    = errors.New("app spec changed concurrently")
)

const defaultBaseURL = "https://api.digitalocean.com/v2"

type Config struct {
	Token      string
	AppID      string
	WorkerName string
	BaseURL    string
	Timeout    time.Duration
}

// Client talks to the App Platform API for one app's worker component:
// reading the authoritative instance count and updating it. Updates go
// through a get-modify-put-verify sequence because the apps endpoint only
// accepts a full spec replacement.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	appID      string
	workerName string
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
		appID:      cfg.AppID,
		workerName: cfg.WorkerName,
	}
}

// The spec is round-tripped untyped so fields this client does not model
// survive the PUT.
type appResponse struct {
	App struct {
		Spec map[string]interface{} `json:"spec"`
	} `json:"app"`
}

// GetInstanceCount returns the configured instance count for the worker.
func (c *Client) GetInstanceCount(ctx context.Context) (int, error) {
	spec, err := c.getSpec(ctx)
	if err != nil {
		return 0, err
	}

	count, ok := workerInstanceCount(spec, c.workerName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrWorkerNotFound, c.workerName)
	}
	return count, nil
}

// SetInstanceCount updates the worker's instance count and verifies the
// change took effect, detecting concurrent spec modifications.
func (c *Client) SetInstanceCount(ctx context.Context, count int) error {
	spec, err := c.getSpec(ctx)
	if err != nil {
		return err
	}

	if !setWorkerInstanceCount(spec, c.workerName, count) {
		return fmt.Errorf("%w: %q", ErrWorkerNotFound, c.workerName)
	}

	if err := c.putSpec(ctx, spec); err != nil {
		return err
	}

	verified, err := c.GetInstanceCount(ctx)
	if err != nil {
		return err
	}
	if verified != count {
		logger.Warnf("Spec update conflict: expected %d instances, readback shows %d", count, verified)
		return fmt.Errorf("%w: expected %d, got %d", ErrSpecConflict, count, verified)
	}

	logger.Infof("Scaled worker %q to %d instances", c.workerName, count)
	return nil
}

func (c *Client) getSpec(ctx context.Context) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/apps/%s", c.baseURL, c.appID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get app returned status %d", ErrRequestFailed, resp.StatusCode)
	}

	var app appResponse
	if err := json.NewDecoder(resp.Body).Decode(&app); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if app.App.Spec == nil {
		return nil, fmt.Errorf("%w: missing app spec", ErrInvalidResponse)
	}
	return app.App.Spec, nil
}

func (c *Client) putSpec(ctx context.Context, spec map[string]interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{"spec": spec})
	if err != nil {
		return fmt.Errorf("%w: failed to encode spec: %v", ErrRequestFailed, err)
	}

	url := fmt.Sprintf("%s/apps/%s", c.baseURL, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: update app returned status %d", ErrRequestFailed, resp.StatusCode)
	}
	return nil
}

func workers(spec map[string]interface{}) []interface{} {
	list, _ := spec["workers"].([]interface{})
	return list
}

func workerInstanceCount(spec map[string]interface{}, name string) (int, bool) {
	for _, w := range workers(spec) {
		worker, ok := w.(map[string]interface{})
		if !ok || worker["name"] != name {
			continue
		}
		if count, ok := worker["instance_count"].(float64); ok {
			return int(count), true
		}
		// instance_count defaults to 1 when absent from the spec.
		return 1, true
	}
	return 0, false
}

func setWorkerInstanceCount(spec map[string]interface{}, name string, count int) bool {
	for _, w := range workers(spec) {
		worker, ok := w.(map[string]interface{})
		if !ok || worker["name"] != name {
			continue
		}
		worker["instance_count"] = count
		return true
	}
	return false
}
