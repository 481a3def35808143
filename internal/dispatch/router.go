// Package dispatch routes a finished generation payload to its back-end
// using the per-template transport rules and normalizes the response.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// DefaultQueryTimeout is the client-side ceiling for the GET-style
// back-ends. The image and video workers regularly take minutes.
const DefaultQueryTimeout = 240 * time.Second

// Result is the normalized outcome of a dispatch call.
type Result struct {
	// ArtifactURL is set when the back-end answered synchronously with a
	// generated asset.
	ArtifactURL string
	// JobID is set when the back-end started an asynchronous job instead.
	JobID string
}

// Router executes dispatches against the immutable route table injected at
// construction.
type Router struct {
	table      *domain.TemplateTable
	httpClient *http.Client
	logger     infra.Logger
}

// NewRouter builds a router. The http client is shared across templates; the
// per-call timeout comes from the route configuration.
func NewRouter(table *domain.TemplateTable, httpClient *http.Client, logger infra.Logger) *Router {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Router{table: table, httpClient: httpClient, logger: logger}
}

// Dispatch sends the payload to the destination configured for the
// template. Missing configuration is a fatal error for the attempt, never
// retried; transport failures come back categorized so the conversation can
// render them and let the user resend.
func (r *Router) Dispatch(ctx context.Context, t domain.Template, payload domain.GenerationPayload) (*Result, error) {
	cfg, ok := r.table.Lookup(t)
	if !ok {
		return nil, domain.NewFailure(domain.FailureDispatchConfig,
			fmt.Sprintf("no dispatch configuration for template %s", t), nil)
	}
	endpoint, err := selectEndpoint(t, cfg.Route, payload)
	if err != nil {
		return nil, err
	}

	var req *http.Request
	var cancel context.CancelFunc = func() {}
	switch cfg.Route.Transport {
	case domain.TransportGetQuery:
		timeout := cfg.Route.Timeout
		if timeout <= 0 {
			timeout = DefaultQueryTimeout
		}
		ctx, cancel = context.WithTimeout(ctx, timeout)
		req, err = newQueryRequest(ctx, endpoint, payload)
	default:
		req, err = newJSONRequest(ctx, endpoint, payload)
	}
	defer cancel()
	if err != nil {
		return nil, domain.NewFailure(domain.FailureDispatchConfig, "", err)
	}

	r.logger.Info().
		Str("template", t.String()).
		Str("endpoint", endpoint).
		Msg("dispatch: sending payload")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, transportFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewFailure(domain.FailureUnreachable, "", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewFailure(domain.FailureEndpointNotFound, endpoint,
			fmt.Errorf("dispatch: status 404 from %s", endpoint))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewFailure(domain.FailureDispatchStatus, "",
			fmt.Errorf("dispatch: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	result := normalizeResponse(raw)
	r.logger.Debug().
		Str("template", t.String()).
		Str("artifact_url", result.ArtifactURL).
		Str("job_id", result.JobID).
		Msg("dispatch: succeeded")
	return result, nil
}

// selectEndpoint applies the image template's three-way routing. The order
// is fixed: editing wins over reference images, which win over prompt-only.
func selectEndpoint(t domain.Template, route domain.RouteConfig, payload domain.GenerationPayload) (string, error) {
	endpoint := route.Endpoint
	if t == domain.TemplateImage {
		switch {
		case payload.Bool("isEditing"):
			endpoint = route.EditEndpoint
		case payload.Bool("hasReferenceImages"):
			endpoint = route.WithImagesEndpoint
		}
	}
	if strings.TrimSpace(endpoint) == "" {
		return "", domain.NewFailure(domain.FailureDispatchConfig,
			fmt.Sprintf("no destination configured for template %s", t), nil)
	}
	return endpoint, nil
}

// newQueryRequest serializes every payload field into the query string. The
// downstream collaborator requires GET: arrays and objects are JSON-encoded
// into a single value per field.
func newQueryRequest(ctx context.Context, endpoint string, payload domain.GenerationPayload) (*http.Request, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dispatch: parse endpoint: %w", err)
	}
	q := parsed.Query()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := queryValue(payload[k])
		if !ok {
			continue
		}
		q.Set(k, v)
	}
	parsed.RawQuery = q.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
}

func queryValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

func newJSONRequest(ctx context.Context, endpoint string, payload domain.GenerationPayload) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// transportFailure maps a client error onto the user-facing taxonomy:
// deadline → timed out, anything else → cannot reach server. The raw error
// stays attached for diagnostics.
func transportFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewFailure(domain.FailureDispatchTimeout, "", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return domain.NewFailure(domain.FailureDispatchTimeout, "", err)
	}
	return domain.NewFailure(domain.FailureUnreachable, "", err)
}

// normalizeResponse accepts the two response shapes the back-ends produce: a
// JSON object, or an array whose first element carries the fields. The
// artifact URL may live under imageUrl or videoUrl and often arrives with
// stray whitespace.
func normalizeResponse(raw []byte) *Result {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &Result{}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		arr, isArr := decoded.([]any)
		if !isArr || len(arr) == 0 {
			return &Result{}
		}
		obj, ok = arr[0].(map[string]any)
		if !ok {
			return &Result{}
		}
	}
	result := &Result{}
	for _, field := range []string{"imageUrl", "videoUrl"} {
		if s, ok := obj[field].(string); ok && strings.TrimSpace(s) != "" {
			result.ArtifactURL = strings.TrimSpace(s)
			break
		}
	}
	for _, field := range []string{"jobId", "job_id"} {
		if s, ok := obj[field].(string); ok && strings.TrimSpace(s) != "" {
			result.JobID = strings.TrimSpace(s)
			break
		}
	}
	return result
}
