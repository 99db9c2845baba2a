// internal/service/service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/MereWhiplash/doctor-finder/internal/corpus"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

const (
	// DefaultTopN is used when a caller asks for zero results
	DefaultTopN = 5
	// MaxTopN is the largest result count a caller may request
	MaxTopN = 10
)

// QueryEmbedder embeds search queries with the same model used for the corpus
type QueryEmbedder interface {
	EmbedForSearch(ctx context.Context, query string) ([]float32, error)
}

// Service contains the business logic for doctor recommendations.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	corpus   *corpus.Corpus
	embedder QueryEmbedder
}

// New creates a new Service
func New(c *corpus.Corpus, emb QueryEmbedder) *Service {
	return &Service{
		corpus:   c,
		embedder: emb,
	}
}

// ClampTopN maps a requested result count into [1, MaxTopN], treating
// anything below one as DefaultTopN.
func ClampTopN(topN int) int {
	if topN < 1 {
		return DefaultTopN
	}
	return min(topN, MaxTopN)
}

// Recommend ranks doctors against a symptom description
func (s *Service) Recommend(ctx context.Context, query string, topN int) ([]types.Recommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}

	embedding, err := s.embedder.EmbedForSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	return s.corpus.Rank(embedding, ClampTopN(topN))
}

// Doctors lists the directory, optionally narrowed to one specialty
func (s *Service) Doctors(ctx context.Context, specialty string) ([]types.DoctorProfile, error) {
	return s.corpus.Filter(specialty), nil
}

// Specialties returns the directory filter options, "All" first
func (s *Service) Specialties(ctx context.Context) ([]string, error) {
	return append([]string{types.SpecialtyAll}, s.corpus.Specialties()...), nil
}

// Size returns the number of doctors in the roster
func (s *Service) Size() int {
	return s.corpus.Len()
}
