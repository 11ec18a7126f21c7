// Package pattern persists and retrieves heuristic-scoring patterns through
// the memory gateway. Retrieval is best-effort: underlying failures yield an
// empty list, never an error, because cold starts are a legitimate state.
package pattern

import (
	"context"
	"sort"

	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

// MinSimilarity is the score floor for a record to count as similar.
const MinSimilarity = 0.3

// Memory is the slice of the gateway the store depends on.
type Memory interface {
	Store(ctx context.Context, category models.MemoryCategory, content string, metadata map[string]any, project string, tags []string) memory.Result
	Retrieve(ctx context.Context, q memory.Query) memory.RetrieveResult
}

// Scored pairs a retrieved record with its similarity to the query.
type Scored struct {
	Record     models.PatternRecord
	Similarity float64
}

// PatternStore reads and writes PatternRecords through a Memory backend.
type PatternStore struct {
	mem Memory
}

// NewStore creates a PatternStore backed by the given memory client.
func NewStore(mem Memory) *PatternStore {
	return &PatternStore{mem: mem}
}

// FindSimilar retrieves up to limit records from a category and ranks them
// by similarity to queryText, most similar first. Records scoring below
// MinSimilarity are dropped. Ordering is deterministic: equal scores break
// by record ID. A failed retrieval returns an empty list.
func (s *PatternStore) FindSimilar(ctx context.Context, category models.MemoryCategory, queryText string, tags []string, limit int) []Scored {
	if limit <= 0 {
		limit = 5
	}

	// Over-fetch so low-scoring records don't starve the result set.
	res := s.mem.Retrieve(ctx, memory.Query{
		Category: category,
		Text:     queryText,
		Tags:     tags,
		Limit:    limit * 2,
	})
	if !res.Success {
		return nil
	}

	scored := make([]Scored, 0, len(res.Records))
	for _, rec := range res.Records {
		sim := Similarity(queryText, rec.Content)
		if sim < MinSimilarity {
			continue
		}
		scored = append(scored, Scored{Record: rec, Similarity: sim})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Find retrieves records matching a query without similarity filtering.
// Used when tag/category filtering is the whole query, e.g. when loading
// workflow history. A failed retrieval returns an empty list.
func (s *PatternStore) Find(ctx context.Context, q memory.Query) []models.PatternRecord {
	res := s.mem.Retrieve(ctx, q)
	if !res.Success {
		return nil
	}
	return res.Records
}

// Persist writes a pattern through the gateway, tagged with its category
// and type. Returns the stored record ID, or a failed Result.
func (s *PatternStore) Persist(ctx context.Context, p models.PatternRecord) memory.Result {
	meta := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	if p.Type != "" {
		meta["type"] = p.Type
	}

	tags := p.Tags
	if p.Type != "" {
		tags = append(append([]string(nil), tags...), p.Type)
	}

	return s.mem.Store(ctx, p.Category, p.Content, meta, p.Project, tags)
}
