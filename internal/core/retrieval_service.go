package core

import (
	"context"
	"fmt"
	"log"
	"sort"

	"ois.ut.ee/course-advisor/internal/catalog"
	"ois.ut.ee/course-advisor/internal/store"
	"ois.ut.ee/course-advisor/internal/utils"
)

// TopK is the system-wide cap on ranked results handed to the model.
const TopK = 5

// Embedder turns query text into vectors dimensionally identical to the
// catalog's.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retrieval is the outcome of one filter-then-rank pass: the surviving
// candidate count, the ranked top-K rows, and the grounding context text.
type Retrieval struct {
	CandidateCount int
	Results        []store.ResultRow
	Context        string
}

// RetrievalService narrows the catalog by structured filters and ranks the
// survivors by semantic similarity to the query.
type RetrievalService struct {
	catalog  *catalog.Catalog
	embedder Embedder
}

func NewRetrievalService(cat *catalog.Catalog, embedder Embedder) *RetrievalService {
	return &RetrievalService{catalog: cat, embedder: embedder}
}

// Retrieve applies the filter spec and ranks the candidates. An empty
// candidate set is a valid terminal state: ranking is skipped and the
// sentinel context is returned.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, spec catalog.FilterSpec) (*Retrieval, error) {
	candidates := spec.Apply(s.catalog.Courses)
	if len(candidates) == 0 {
		log.Printf("No courses match the active filters for query %.50q", query)
		return &Retrieval{CandidateCount: 0, Results: []store.ResultRow{}, Context: NoCoursesContext}, nil
	}

	// Vectors are validated at catalog load; a row without one is excluded
	// here rather than failing the query.
	scorable := candidates[:0:0]
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			log.Printf("Skipping course %s: no embedding", c.ID)
			continue
		}
		scorable = append(scorable, c)
	}
	if len(scorable) == 0 {
		return &Retrieval{CandidateCount: len(candidates), Results: []store.ResultRow{}, Context: NoCoursesContext}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec := vectors[0]

	matrix := make([][]float32, len(scorable))
	norms := make([]float32, len(scorable))
	for i, c := range scorable {
		matrix[i] = c.Embedding
		norms[i] = c.Norm
	}
	scores, err := utils.CosineScores(queryVec, matrix, norms)
	if err != nil {
		return nil, fmt.Errorf("failed to score candidates: %w", err)
	}

	// Stable sort: ties keep their original catalog order.
	order := make([]int, len(scorable))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	n := TopK
	if n > len(order) {
		n = len(order)
	}
	results := make([]store.ResultRow, 0, n)
	for _, idx := range order[:n] {
		c := scorable[idx]
		results = append(results, store.ResultRow{
			CourseID:      c.ID,
			Name:          c.Name,
			Credits:       c.Credits,
			Semester:      c.Semester,
			Grading:       c.Grading,
			City:          c.City,
			Level:         c.Level,
			Delivery:      c.Delivery,
			Prerequisites: c.Prerequisites,
			Score:         float64(scores[idx]),
		})
	}

	return &Retrieval{
		CandidateCount: len(candidates),
		Results:        results,
		Context:        RenderCourseTable(results),
	}, nil
}
