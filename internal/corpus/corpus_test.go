package corpus_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/doctor-finder/internal/corpus"
	"github.com/MereWhiplash/doctor-finder/internal/embedder"
	"github.com/MereWhiplash/doctor-finder/internal/embedder/mock"
	"github.com/MereWhiplash/doctor-finder/internal/storage"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

func profile(name, specialties, overview string) types.DoctorProfile {
	p := types.DoctorProfile{
		Name:        name,
		Specialties: specialties,
		Overview:    overview,
		ProfileLink: "https://example.com/" + name,
	}
	p.Derive()
	return p
}

func roster() []types.DoctorProfile {
	return []types.DoctorProfile{
		profile("Ada", "Cardiology", "heart disease expert"),
		profile("Ben", "Neurology", "migraine specialist"),
		profile("Cy", "Dermatology", "skin rash and eczema care"),
		profile("Dee", "Cardiology", "arrhythmia and heart failure clinic"),
		profile("Eve", "Orthopedics", "knee and hip replacement surgery"),
	}
}

func build(t *testing.T, profiles []types.DoctorProfile) *corpus.Corpus {
	t.Helper()
	c, err := corpus.Build(context.Background(), profiles, mock.NewEmbedder(), corpus.WithWorkers(3))
	require.NoError(t, err)
	return c
}

func rank(t *testing.T, c *corpus.Corpus, query string, topN int) []types.Recommendation {
	t.Helper()
	results, err := c.Rank(mock.Vector(query), topN)
	require.NoError(t, err)
	return results
}

func TestBuild_AlignsEmbeddingsWithProfiles(t *testing.T) {
	profiles := roster()
	c := build(t, profiles)

	require.Equal(t, len(profiles), c.Len())
	assert.Equal(t, mock.Dimensions, c.Dimensions())
	assert.Equal(t, profiles, c.Profiles())

	// Each profile is its own best match, which only holds if
	// embedding i was stored next to profile i.
	for _, p := range profiles {
		results := rank(t, c, p.CombinedText, 1)
		require.Len(t, results, 1)
		assert.Equal(t, p.Name, results[0].Doctor.Name)
		assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	}
}

func TestBuild_EmbeddingFailureIsFatal(t *testing.T) {
	emb := mock.NewEmbedder()
	emb.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "Dermatology skin rash and eczema care" {
			return nil, errors.New("model crashed")
		}
		return mock.Vector(text), nil
	}

	_, err := corpus.Build(context.Background(), roster(), emb, corpus.WithWorkers(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
	assert.Contains(t, err.Error(), "Cy")
}

func TestBuild_DegenerateEmbeddingIsFatal(t *testing.T) {
	emb := mock.NewEmbedder()
	emb.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return make([]float32, 4), nil
	}

	_, err := corpus.Build(context.Background(), roster(), emb)
	assert.ErrorIs(t, err, types.ErrDegenerateVector)
}

func TestBuild_EmptyCombinedText(t *testing.T) {
	profiles := []types.DoctorProfile{{Name: "Blank", CombinedText: " "}}

	_, err := corpus.Build(context.Background(), profiles, mock.NewEmbedder())
	assert.ErrorIs(t, err, types.ErrEmptyText)
}

func TestBuild_EmptyRoster(t *testing.T) {
	c, err := corpus.Build(context.Background(), nil, mock.NewEmbedder())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	results, err := c.Rank(mock.Vector("headache"), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := corpus.Build(ctx, roster(), mock.NewEmbedder())
	assert.ErrorIs(t, err, context.Canceled)
}

type countingStore struct {
	storage.Store
	mu         sync.Mutex
	gets, puts int
}

func (s *countingStore) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(ctx, model, keys)
}

func (s *countingStore) Put(ctx context.Context, model string, entries []storage.Entry) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.Store.Put(ctx, model, entries)
}

func TestBuild_CachedEmbedderBatchesStoreAccess(t *testing.T) {
	ctx := context.Background()
	inner := mock.NewEmbedder()
	store := &countingStore{Store: storage.NewMemory()}
	emb := embedder.NewCached(inner, store, nil)

	cold, err := corpus.Build(ctx, roster(), emb, corpus.WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, len(roster()), inner.StorageCalls())

	warm, err := corpus.Build(ctx, roster(), emb, corpus.WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, 2, store.gets)
	assert.Equal(t, 1, store.puts, "warm build must not write")
	assert.Equal(t, len(roster()), inner.StorageCalls(), "warm build must not call the model")

	query := mock.Vector("migraine")
	coldRecs, err := cold.Rank(query, 3)
	require.NoError(t, err)
	warmRecs, err := warm.Rank(query, 3)
	require.NoError(t, err)
	assert.Equal(t, coldRecs, warmRecs)
}

func TestNew_Mismatch(t *testing.T) {
	_, err := corpus.New(roster(), [][]float32{{1, 0}})
	assert.ErrorIs(t, err, types.ErrCorpusMismatch)

	_, err = corpus.New(roster()[:2], [][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestNew_CopiesInputs(t *testing.T) {
	profiles := roster()[:2]
	vectors := [][]float32{{1, 0}, {0, 1}}

	c, err := corpus.New(profiles, vectors)
	require.NoError(t, err)

	profiles[0].Name = "changed"
	vectors[0][0] = -1

	assert.Equal(t, "Ada", c.Profiles()[0].Name)
	results, err := c.Rank([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", results[0].Doctor.Name)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRank_ReturnsExactlyTopN(t *testing.T) {
	c := build(t, roster())

	for n := 1; n <= c.Len(); n++ {
		assert.Len(t, rank(t, c, "heart pain", n), n, "topN=%d", n)
	}
}

func TestRank_CapsAtCorpusSize(t *testing.T) {
	c := build(t, roster())

	assert.Len(t, rank(t, c, "heart pain", 10), c.Len())
	assert.Len(t, rank(t, c, "heart pain", 1000), c.Len())
}

func TestRank_NonPositiveTopN(t *testing.T) {
	c := build(t, roster())

	assert.Empty(t, rank(t, c, "heart pain", 0))
	assert.Empty(t, rank(t, c, "heart pain", -3))
}

func TestRank_ScoresNonIncreasingAndBounded(t *testing.T) {
	c := build(t, roster())

	for _, q := range []string{"heart", "my knee hurts after running", "itchy skin rash", "zzz"} {
		results := rank(t, c, q, c.Len())
		for i, r := range results {
			assert.GreaterOrEqual(t, r.Score, -1.0)
			assert.LessOrEqual(t, r.Score, 1.0)
			if i > 0 {
				assert.LessOrEqual(t, r.Score, results[i-1].Score, "query %q position %d", q, i)
			}
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	c := build(t, roster())

	first := rank(t, c, "chest pain and palpitations", 5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, rank(t, c, "chest pain and palpitations", 5))
	}
}

func TestRank_MigraineExample(t *testing.T) {
	c := build(t, []types.DoctorProfile{
		profile("Heart Doc", "Cardiology", "heart disease expert"),
		profile("Head Doc", "Neurology", "migraine specialist"),
	})

	results := rank(t, c, "I have severe migraines", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "Neurology", results[0].Doctor.Specialties)
}

func TestRank_TiesKeepCorpusOrder(t *testing.T) {
	profiles := []types.DoctorProfile{
		profile("First", "General", "family medicine"),
		profile("Other", "Neurology", "migraine specialist"),
		profile("Second", "General", "family medicine"),
		profile("Third", "General", "family medicine"),
	}
	c := build(t, profiles)

	results := rank(t, c, "General family medicine", 3)
	require.Len(t, results, 3)
	assert.Equal(t, "First", results[0].Doctor.Name)
	assert.Equal(t, "Second", results[1].Doctor.Name)
	assert.Equal(t, "Third", results[2].Doctor.Name)
}

func TestRank_RejectsBadQueryVectors(t *testing.T) {
	c := build(t, roster())

	_, err := c.Rank(make([]float32, mock.Dimensions), 3)
	assert.ErrorIs(t, err, types.ErrDegenerateVector)

	_, err = c.Rank(nil, 3)
	assert.ErrorIs(t, err, types.ErrDegenerateVector)

	_, err = c.Rank([]float32{1, 2, 3}, 3)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestFilter(t *testing.T) {
	c := build(t, roster())

	cardio := c.Filter("Cardiology")
	require.Len(t, cardio, 2)
	assert.Equal(t, "Ada", cardio[0].Name)
	assert.Equal(t, "Dee", cardio[1].Name)

	assert.Empty(t, c.Filter("cardiology"), "filter is case-sensitive")
	assert.Empty(t, c.Filter("Cardio"), "filter is exact")

	assert.Equal(t, c.Profiles(), c.Filter(types.SpecialtyAll))
	assert.Equal(t, c.Profiles(), c.Filter(""))
}

func TestSpecialties_FirstSeenOrder(t *testing.T) {
	c := build(t, roster())

	assert.Equal(t, []string{"Cardiology", "Neurology", "Dermatology", "Orthopedics"}, c.Specialties())
}

func TestSpecialties_SkipsBlank(t *testing.T) {
	profiles := append(roster(), profile("Gus", "", "general checkups"))
	c := build(t, profiles)

	specialties := c.Specialties()
	assert.NotContains(t, specialties, "")
	assert.Equal(t, []string{"Cardiology", "Neurology", "Dermatology", "Orthopedics"}, specialties)

	// still listed in the full directory
	assert.Len(t, c.Filter(types.SpecialtyAll), len(profiles))
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{3, 4}, []float32{6, 8}, 1},
		{[]float32{1, 1}, []float32{1, 0}, 1 / math.Sqrt2},
		{[]float32{1, 0}, []float32{1, 0, 0}, 0},
		{[]float32{0, 0}, []float32{1, 0}, 0},
		{nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v_%v", tc.a, tc.b), func(t *testing.T) {
			assert.InDelta(t, tc.want, corpus.CosineSimilarity(tc.a, tc.b), 1e-6)
		})
	}
}
