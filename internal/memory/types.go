// Package memory provides the HTTP client for the external memory service.
// All operations return structured Results and never panic or surface raw
// transport errors to callers.
package memory

import (
	"errors"
	"fmt"

	"github.com/squadronhq/squadron/pkg/models"
)

// ErrNotConnected indicates an operation ran before a successful Connect.
var ErrNotConnected = errors.New("memory gateway not connected")

// Result is the outcome of a single-record gateway operation.
type Result struct {
	// Success reports whether the operation completed.
	Success bool `json:"success"`
	// RecordID is the memory service identifier, set on successful stores.
	RecordID string `json:"record_id,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// RetrieveResult is the outcome of a retrieval operation.
type RetrieveResult struct {
	// Success reports whether the query completed.
	Success bool `json:"success"`
	// Records holds the matching records, possibly empty.
	Records []models.PatternRecord `json:"records,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// Query filters a retrieval operation. Zero-value fields are omitted from
// the request.
type Query struct {
	// Category restricts results to one memory category.
	Category models.MemoryCategory
	// Text is the free-text search query.
	Text string
	// Project restricts results to one project space.
	Project string
	// Tags restricts results to records carrying all listed tags.
	Tags []string
	// Limit caps the number of records returned. Defaults to 10.
	Limit int
}

// statusError carries a non-2xx HTTP response through the retry machinery.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("memory service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// failure builds a failed Result from an error.
func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
