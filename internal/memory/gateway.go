package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/squadronhq/squadron/internal/config"
	"github.com/squadronhq/squadron/pkg/models"
)

// userAgent identifies the gateway on every request.
const userAgent = "Squadron-Memory-Client/1.0.0"

// healthStaleness is how long a liveness probe stays fresh. Operations
// re-probe before talking to a stale connection.
const healthStaleness = 5 * time.Minute

// Gateway is the pooled HTTP client for the memory service. All operations
// are wrapped in retry-with-exponential-backoff and return Results instead
// of raising; see the package comment.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   *RetryConfig
	stats   statsTracker

	mu         sync.Mutex
	connected  bool
	lastHealth time.Time
}

// NewGateway builds a gateway from memory service settings. The connection
// pool size bounds idle connections; it is fixed for the gateway's lifetime.
func NewGateway(cfg config.MemoryConfig) *Gateway {
	transport := &http.Transport{
		MaxIdleConns:        cfg.ConnectionPoolSize,
		MaxIdleConnsPerHost: cfg.ConnectionPoolSize,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Gateway{
		baseURL: cfg.BaseURL(),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		retry: &RetryConfig{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.RetryDelay,
		},
	}
}

// Connect probes the service and marks the gateway connected on a 2xx
// /health response. It fails closed: any other response leaves the gateway
// disconnected.
func (g *Gateway) Connect(ctx context.Context) error {
	if err := g.HealthCheck(ctx); err != nil {
		g.mu.Lock()
		g.connected = false
		g.mu.Unlock()
		return err
	}
	return nil
}

// Disconnect releases pooled connections.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
	g.client.CloseIdleConnections()
}

// Connected reports the gateway's view of the connection.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// HealthCheck performs a liveness probe and refreshes the freshness window.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	err := g.do(ctx, http.MethodGet, "/health", nil, nil, nil, nil)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.connected = false
		return fmt.Errorf("memory service health check: %w", err)
	}
	g.connected = true
	g.lastHealth = time.Now()
	return nil
}

// ensureFresh re-probes the service when the last successful health check
// is older than the freshness window, or when the gateway never connected.
// A failed probe surfaces as ErrNotConnected so callers can tell a dead
// service apart from a failed operation.
func (g *Gateway) ensureFresh(ctx context.Context) error {
	g.mu.Lock()
	fresh := g.connected && time.Since(g.lastHealth) < healthStaleness
	g.mu.Unlock()
	if fresh {
		return nil
	}
	if err := g.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// EnsureSpace creates the project's memory space. An already-existing
// space (HTTP 409) is treated as success.
func (g *Gateway) EnsureSpace(ctx context.Context, project, description string) Result {
	if err := g.ensureFresh(ctx); err != nil {
		g.stats.recordFailure()
		return failure(err)
	}

	body := map[string]any{
		"space_name":  project,
		"description": description,
		"metadata":    map[string]any{"created_by": userAgent},
	}

	start := time.Now()
	err := retryOperation(ctx, g.retry, func() error {
		return g.do(ctx, http.MethodPost, "/spaces", nil, body, nil, func(status int) bool {
			return status == http.StatusConflict
		})
	})
	if err != nil {
		g.stats.recordFailure()
		return failure(err)
	}
	g.stats.recordSuccess(time.Since(start))
	return Result{Success: true, RecordID: project}
}

// Store writes one record. An unknown category fails fast without touching
// the network.
func (g *Gateway) Store(ctx context.Context, category models.MemoryCategory, content string, metadata map[string]any, project string, tags []string) Result {
	if !category.Valid() {
		g.stats.recordFailure()
		return Result{Success: false, Error: fmt.Sprintf("Invalid category: %q", category)}
	}
	if err := g.ensureFresh(ctx); err != nil {
		g.stats.recordFailure()
		return failure(err)
	}

	meta := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["category"] = string(category)
	meta["tags"] = tags
	meta["stored_at"] = time.Now().UTC().Format(time.RFC3339)

	body := map[string]any{
		"content":    content,
		"space_name": project,
		"metadata":   meta,
	}

	var resp struct {
		ID string `json:"id"`
	}

	start := time.Now()
	err := retryOperation(ctx, g.retry, func() error {
		return g.do(ctx, http.MethodPost, "/memories", nil, body, &resp, nil)
	})
	if err != nil {
		g.stats.recordFailure()
		return failure(err)
	}
	g.stats.recordSuccess(time.Since(start))
	return Result{Success: true, RecordID: resp.ID}
}

// Retrieve queries records. The memory service is best-effort: a successful
// call may return a subset or nothing, and callers must treat an empty list
// as a legitimate result.
func (g *Gateway) Retrieve(ctx context.Context, q Query) RetrieveResult {
	if q.Category != "" && !q.Category.Valid() {
		g.stats.recordFailure()
		return RetrieveResult{Success: false, Error: fmt.Sprintf("Invalid category: %q", q.Category)}
	}
	if err := g.ensureFresh(ctx); err != nil {
		g.stats.recordFailure()
		return RetrieveResult{Success: false, Error: err.Error()}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("limit", strconv.Itoa(limit))
	if q.Category != "" {
		params.Set("category", string(q.Category))
	}
	if q.Project != "" {
		params.Set("space_name", q.Project)
	}
	if len(q.Tags) > 0 {
		params.Set("tags", strings.Join(q.Tags, ","))
	}

	var resp struct {
		Memories []json.RawMessage `json:"memories"`
	}

	start := time.Now()
	err := retryOperation(ctx, g.retry, func() error {
		return g.do(ctx, http.MethodGet, "/memories/search", params, nil, &resp, nil)
	})
	if err != nil {
		g.stats.recordFailure()
		return RetrieveResult{Success: false, Error: err.Error()}
	}
	g.stats.recordSuccess(time.Since(start))

	records := make([]models.PatternRecord, 0, len(resp.Memories))
	for _, raw := range resp.Memories {
		rec, err := decodeRecord(raw)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return RetrieveResult{Success: true, Records: records}
}

// Update rewrites a record's content and/or metadata.
func (g *Gateway) Update(ctx context.Context, id string, content string, metadata map[string]any) Result {
	if id == "" {
		g.stats.recordFailure()
		return Result{Success: false, Error: "missing record id"}
	}
	if err := g.ensureFresh(ctx); err != nil {
		g.stats.recordFailure()
		return failure(err)
	}

	body := map[string]any{}
	if content != "" {
		body["content"] = content
	}
	if metadata != nil {
		body["metadata"] = metadata
	}

	start := time.Now()
	err := retryOperation(ctx, g.retry, func() error {
		return g.do(ctx, http.MethodPut, "/memories/"+url.PathEscape(id), nil, body, nil, nil)
	})
	if err != nil {
		g.stats.recordFailure()
		return failure(err)
	}
	g.stats.recordSuccess(time.Since(start))
	return Result{Success: true, RecordID: id}
}

// Delete removes a record. A 404 is treated as already-deleted success.
func (g *Gateway) Delete(ctx context.Context, id string) Result {
	if id == "" {
		g.stats.recordFailure()
		return Result{Success: false, Error: "missing record id"}
	}
	if err := g.ensureFresh(ctx); err != nil {
		g.stats.recordFailure()
		return failure(err)
	}

	start := time.Now()
	err := retryOperation(ctx, g.retry, func() error {
		return g.do(ctx, http.MethodDelete, "/memories/"+url.PathEscape(id), nil, nil, nil, func(status int) bool {
			return status == http.StatusNotFound
		})
	})
	if err != nil {
		g.stats.recordFailure()
		return failure(err)
	}
	g.stats.recordSuccess(time.Since(start))
	return Result{Success: true, RecordID: id}
}

// Statistics returns a snapshot of the gateway's counters.
func (g *Gateway) Statistics() Statistics {
	snap := g.stats.snapshot()
	g.mu.Lock()
	snap.Connected = g.connected
	snap.LastHealthCheck = g.lastHealth
	g.mu.Unlock()
	return snap
}

// do issues one HTTP request. okAnyway lets callers accept specific non-2xx
// statuses (409 on space creation, 404 on delete).
func (g *Gateway) do(ctx context.Context, method, path string, params url.Values, body, out any, okAnyway func(int) bool) error {
	endpoint := g.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if okAnyway != nil && okAnyway(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeRecord maps one wire memory object onto a PatternRecord. Category
// and tags ride in the metadata mapping.
func decodeRecord(raw json.RawMessage) (models.PatternRecord, error) {
	var wire struct {
		ID        string         `json:"id"`
		Content   string         `json:"content"`
		SpaceName string         `json:"space_name"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return models.PatternRecord{}, err
	}

	rec := models.PatternRecord{
		ID:       wire.ID,
		Content:  wire.Content,
		Project:  wire.SpaceName,
		Metadata: wire.Metadata,
	}
	if wire.Metadata != nil {
		if c, ok := wire.Metadata["category"].(string); ok {
			rec.Category = models.MemoryCategory(c)
		}
		if t, ok := wire.Metadata["type"].(string); ok {
			rec.Type = t
		}
		if rawTags, ok := wire.Metadata["tags"].([]any); ok {
			for _, tag := range rawTags {
				if s, ok := tag.(string); ok {
					rec.Tags = append(rec.Tags, s)
				}
			}
		}
		if ts, ok := wire.Metadata["stored_at"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				rec.StoredAt = parsed
			}
		}
	}
	return rec, nil
}
