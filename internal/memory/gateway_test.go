package memory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/squadronhq/squadron/internal/config"
	"github.com/squadronhq/squadron/pkg/models"
)

// testGateway points a gateway at a test server with fast retries.
func testGateway(t *testing.T, handler http.Handler) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing port: %v", err)
	}

	g := NewGateway(config.MemoryConfig{
		Host:               u.Hostname(),
		Port:               port,
		Timeout:            5 * time.Second,
		MaxRetries:         3,
		RetryDelay:         time.Millisecond,
		ConnectionPoolSize: 2,
		APIKey:             "test-token",
	})
	return g, srv
}

// healthOK wraps a handler so /health always succeeds.
func healthOK(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	})
}

func TestStoreSuccess(t *testing.T) {
	var gotAuth, gotAgent string
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/memories" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["space_name"] != "demo" {
			t.Errorf("space_name = %v, want demo", body["space_name"])
		}
		meta, _ := body["metadata"].(map[string]any)
		if meta["category"] != "pattern" {
			t.Errorf("metadata.category = %v, want pattern", meta["category"])
		}

		json.NewEncoder(w).Encode(map[string]string{"id": "mem-123"})
	}))

	res := g.Store(context.Background(), models.CategoryPattern, "observed a thing", nil, "demo", []string{"t1"})
	if !res.Success {
		t.Fatalf("Store failed: %s", res.Error)
	}
	if res.RecordID != "mem-123" {
		t.Errorf("RecordID = %q, want mem-123", res.RecordID)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAgent != userAgent {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestStoreInvalidCategoryFailsFast(t *testing.T) {
	var hits int32
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	res := g.Store(context.Background(), "nonsense", "content", nil, "demo", nil)
	if res.Success {
		t.Fatal("expected failure for invalid category")
	}
	if !strings.Contains(res.Error, "Invalid category") {
		t.Errorf("error = %q, want Invalid category", res.Error)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("server was hit %d times, want 0", hits)
	}
}

func TestRetryBoundOnTransientFailure(t *testing.T) {
	var attempts int32
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	res := g.Store(context.Background(), models.CategoryError, "boom", nil, "demo", nil)
	if res.Success {
		t.Fatal("expected failure after retry exhaustion")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want exactly 3", got)
	}
	if !strings.Contains(res.Error, "503") {
		t.Errorf("error = %q, want last HTTP error", res.Error)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var attempts int32
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	res := g.Store(context.Background(), models.CategoryPattern, "x", nil, "demo", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 4xx)", got)
	}
}

func TestEnsureSpaceTreats409AsSuccess(t *testing.T) {
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spaces" {
			t.Errorf("path = %s, want /spaces", r.URL.Path)
		}
		http.Error(w, "space exists", http.StatusConflict)
	}))

	res := g.EnsureSpace(context.Background(), "demo", "demo project memory")
	if !res.Success {
		t.Fatalf("EnsureSpace failed: %s", res.Error)
	}
}

func TestDeleteTreats404AsSuccess(t *testing.T) {
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	res := g.Delete(context.Background(), "gone-id")
	if !res.Success {
		t.Fatalf("Delete failed: %s", res.Error)
	}
}

func TestRetrieveDecodesRecords(t *testing.T) {
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/memories/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("query"); q != "auth service" {
			t.Errorf("query = %q", q)
		}
		if c := r.URL.Query().Get("category"); c != "pattern" {
			t.Errorf("category = %q", c)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"memories": []map[string]any{
				{
					"id":         "m1",
					"content":    "decomposed auth service into 6 subtasks",
					"space_name": "demo",
					"metadata": map[string]any{
						"category":     "pattern",
						"type":         "task_decomposition",
						"success_rate": 0.8,
						"tags":         []string{"decomposition"},
					},
				},
			},
		})
	}))

	res := g.Retrieve(context.Background(), Query{
		Category: models.CategoryPattern,
		Text:     "auth service",
		Project:  "demo",
		Limit:    5,
	})
	if !res.Success {
		t.Fatalf("Retrieve failed: %s", res.Error)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.ID != "m1" || rec.Category != models.CategoryPattern || rec.Type != "task_decomposition" {
		t.Errorf("record = %+v", rec)
	}
	if rec.SuccessRate() != 0.8 {
		t.Errorf("SuccessRate() = %v, want 0.8", rec.SuccessRate())
	}
}

func TestRetrieveEmptyIsSuccess(t *testing.T) {
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"memories": []any{}})
	}))

	res := g.Retrieve(context.Background(), Query{Text: "nothing matches"})
	if !res.Success {
		t.Fatalf("Retrieve failed: %s", res.Error)
	}
	if len(res.Records) != 0 {
		t.Errorf("got %d records, want 0", len(res.Records))
	}
}

func TestOperationsOnDeadServiceReportNotConnected(t *testing.T) {
	g, _ := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	if err := g.ensureFresh(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ensureFresh error = %v, want ErrNotConnected", err)
	}

	res := g.Store(context.Background(), models.CategoryPattern, "content", nil, "demo", nil)
	if res.Success {
		t.Fatal("store against a dead service should fail")
	}
	if !strings.Contains(res.Error, ErrNotConnected.Error()) {
		t.Errorf("result error = %q, want it to name the disconnected gateway", res.Error)
	}
}

func TestConnectFailsClosedOnUnhealthyService(t *testing.T) {
	g, _ := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	if err := g.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail")
	}
	if g.Connected() {
		t.Error("gateway should not report connected")
	}
}

func TestStatisticsTrackOutcomes(t *testing.T) {
	g, _ := testGateway(t, healthOK(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "m1"})
	}))

	g.Store(context.Background(), models.CategoryPattern, "a", nil, "demo", nil)
	g.Store(context.Background(), "bogus", "b", nil, "demo", nil)

	stats := g.Statistics()
	if stats.Operations != 2 {
		t.Errorf("Operations = %d, want 2", stats.Operations)
	}
	if stats.Successes != 1 || stats.Failures != 1 {
		t.Errorf("Successes/Failures = %d/%d, want 1/1", stats.Successes, stats.Failures)
	}
	if !stats.Connected {
		t.Error("expected connected after successful operation")
	}
	if stats.LastHealthCheck.IsZero() {
		t.Error("expected LastHealthCheck to be set")
	}
	if stats.AvgResponseTime <= 0 {
		t.Error("expected positive average response time")
	}
}
