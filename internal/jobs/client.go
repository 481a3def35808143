// Package jobs talks to the collaborator that owns long-running generation
// jobs: status reads for the poller and the fire-and-forget catalog-analysis
// kickoff.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studio/internal/domain"
)

// Options configures the job client.
type Options struct {
	// StatusBaseURL is the root of the job-status endpoint; jobs are
	// fetched from StatusBaseURL/{id}.
	StatusBaseURL string
	// CatalogAnalysisURL receives the sibling-job kickoff.
	CatalogAnalysisURL string
	HTTPClient         *http.Client
}

// Client implements domain.JobReader and poll.CatalogStarter over HTTP.
type Client struct {
	statusBaseURL string
	catalogURL    string
	httpClient    *http.Client
}

// NewClient constructs the client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.StatusBaseURL), "/")
	if base == "" {
		return nil, errors.New("jobs: status base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		statusBaseURL: base,
		catalogURL:    strings.TrimSpace(opts.CatalogAnalysisURL),
		httpClient:    httpClient,
	}, nil
}

type statusResponse struct {
	Job *domain.Job `json:"job"`
}

// GetJob fetches the job's current state.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	endpoint := c.statusBaseURL + "/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("jobs: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jobs: fetch status: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jobs: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("jobs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("jobs: decode response: %w", err)
	}
	if decoded.Job == nil {
		return nil, fmt.Errorf("jobs: response carried no job")
	}
	return decoded.Job, nil
}

// StartCatalogAnalysis kicks off the product/catalog analysis job. The
// caller treats this as fire-and-forget; an unconfigured endpoint is a
// silent no-op.
func (c *Client) StartCatalogAnalysis(ctx context.Context, businessID string) error {
	if c.catalogURL == "" {
		return nil
	}
	body, err := json.Marshal(map[string]string{"businessId": businessID})
	if err != nil {
		return fmt.Errorf("jobs: encode kickoff: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.catalogURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("jobs: build kickoff: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jobs: catalog kickoff: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("jobs: catalog kickoff status %d", resp.StatusCode)
	}
	return nil
}
