// Package corpus holds the immutable doctor roster together with one
// embedding per profile, and ranks it against query embeddings.
//
// Profiles and embeddings are index-aligned: embedding i always belongs to
// profile i. A Corpus is never modified after construction, so it can be
// shared across goroutines without locking.
package corpus

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// DocumentEmbedder embeds profile text
type DocumentEmbedder interface {
	EmbedForStorage(ctx context.Context, text string) ([]float32, error)
}

// batchEmbedder is implemented by embedders that can read and write their
// cache once per build instead of once per profile.
type batchEmbedder interface {
	Prefetch(ctx context.Context, texts []string)
	Flush(ctx context.Context)
}

// Corpus is the ranked collection of doctor profiles
type Corpus struct {
	profiles   []types.DoctorProfile
	embeddings [][]float32
	dims       int
}

// Option configures Build
type Option func(*buildOptions)

type buildOptions struct {
	workers int
	logger  *slog.Logger
}

// WithWorkers sets how many profiles are embedded concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithWorkers(n int) Option {
	return func(o *buildOptions) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a corpus from precomputed embeddings.
// embeddings[i] must belong to profiles[i]; the slices are copied.
func New(profiles []types.DoctorProfile, embeddings [][]float32) (*Corpus, error) {
	if len(profiles) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d profiles, %d embeddings", types.ErrCorpusMismatch, len(profiles), len(embeddings))
	}

	c := &Corpus{
		profiles:   slices.Clone(profiles),
		embeddings: make([][]float32, len(embeddings)),
	}

	for i, vec := range embeddings {
		if !nonZero(vec) {
			return nil, fmt.Errorf("profile %d (%s): %w", i, profiles[i].Name, types.ErrDegenerateVector)
		}
		if i == 0 {
			c.dims = len(vec)
		} else if len(vec) != c.dims {
			return nil, fmt.Errorf("profile %d (%s): %w: got %d, want %d",
				i, profiles[i].Name, types.ErrDimensionMismatch, len(vec), c.dims)
		}
		c.embeddings[i] = slices.Clone(vec)
	}

	return c, nil
}

// Build embeds every profile's CombinedText and returns the corpus.
// Any embedding failure aborts the build.
func Build(ctx context.Context, profiles []types.DoctorProfile, emb DocumentEmbedder, opts ...Option) (*Corpus, error) {
	o := buildOptions{
		workers: max(runtime.NumCPU(), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	defer pool.Release()

	if b, ok := emb.(batchEmbedder); ok {
		texts := make([]string, len(profiles))
		for i, p := range profiles {
			texts[i] = p.CombinedText
		}
		b.Prefetch(ctx, texts)
		defer b.Flush(context.WithoutCancel(ctx))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	vectors := make([][]float32, len(profiles))
	errs := make([]error, len(profiles))

	var wg sync.WaitGroup
	for i := range profiles {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			vec, err := emb.EmbedForStorage(ctx, profiles[i].CombinedText)
			if err != nil {
				errs[i] = fmt.Errorf("failed to embed profile %d (%s): %w", i, profiles[i].Name, err)
				cancel()
				return
			}
			vectors[i] = vec
		}

		if err := pool.Submit(task); err != nil {
			wg.Done()
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("failed to schedule embedding: %w", err)
		}
	}
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}

	c, err := New(profiles, vectors)
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "corpus built",
		"profiles", c.Len(),
		"dimensions", c.dims,
		"duration", time.Since(start))

	return c, nil
}

// firstError prefers a real failure over the cancellations it triggered
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) && canceled == nil {
			canceled = err
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return canceled
}

// Len returns the number of profiles
func (c *Corpus) Len() int {
	return len(c.profiles)
}

// Dimensions returns the embedding length, or 0 for an empty corpus
func (c *Corpus) Dimensions() int {
	return c.dims
}

// Profiles returns a copy of every profile in corpus order
func (c *Corpus) Profiles() []types.DoctorProfile {
	return slices.Clone(c.profiles)
}

// Filter returns the profiles whose Specialties equal specialty exactly.
// SpecialtyAll (or an empty string) returns the whole corpus in order.
func (c *Corpus) Filter(specialty string) []types.DoctorProfile {
	out := make([]types.DoctorProfile, 0, len(c.profiles))
	for _, p := range c.profiles {
		if p.Matches(specialty) {
			out = append(out, p)
		}
	}
	return out
}

// Specialties returns the distinct specialty values in first-seen order.
// Blank values are skipped: "" already means every doctor to Filter.
func (c *Corpus) Specialties() []string {
	seen := make(map[string]struct{}, len(c.profiles))
	out := make([]string, 0)
	for _, p := range c.profiles {
		if p.Specialties == "" {
			continue
		}
		if _, ok := seen[p.Specialties]; ok {
			continue
		}
		seen[p.Specialties] = struct{}{}
		out = append(out, p.Specialties)
	}
	return out
}

// Rank scores every profile against query and returns the topN best,
// highest score first. Equal scores keep corpus order. The result has
// min(topN, Len()) entries; topN <= 0 yields none.
func (c *Corpus) Rank(query []float32, topN int) ([]types.Recommendation, error) {
	if !nonZero(query) {
		return nil, types.ErrDegenerateVector
	}
	if c.dims != 0 && len(query) != c.dims {
		return nil, fmt.Errorf("%w: query has %d, corpus has %d", types.ErrDimensionMismatch, len(query), c.dims)
	}

	k := min(max(topN, 0), len(c.profiles))
	if k == 0 {
		return []types.Recommendation{}, nil
	}

	scores := make([]float64, len(c.embeddings))
	order := make([]int, len(c.embeddings))
	for i, vec := range c.embeddings {
		scores[i] = CosineSimilarity(query, vec)
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	out := make([]types.Recommendation, k)
	for i, idx := range order[:k] {
		out[i] = types.Recommendation{
			Doctor: c.profiles[idx],
			Score:  scores[idx],
		}
	}
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It returns 0 when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim))
}

func nonZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return true
		}
	}
	return false
}
