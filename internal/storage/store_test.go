package storage_test

import (
	"context"
	"testing"

	"github.com/MereWhiplash/doctor-finder/internal/storage"
)

// exerciseStore runs the behaviour every Store driver must share
func exerciseStore(t *testing.T, store storage.Store, model string) {
	t.Helper()
	ctx := context.Background()

	cardio := storage.Key("Cardiology heart disease expert")
	neuro := storage.Key("Neurology migraine specialist")
	missing := storage.Key("Dermatology skin")

	err := store.Put(ctx, model, []storage.Entry{
		{Key: cardio, Embedding: []float32{0.5, 0.25, -1}},
		{Key: neuro, Embedding: []float32{-0.5, 1, 0}},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, model, []string{cardio, neuro, missing})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cached embeddings, got %d", len(got))
	}
	if _, ok := got[missing]; ok {
		t.Error("expected missing key to be absent")
	}
	assertVector(t, got[cardio], []float32{0.5, 0.25, -1})
	assertVector(t, got[neuro], []float32{-0.5, 1, 0})

	// Replacing an entry overwrites the vector
	err = store.Put(ctx, model, []storage.Entry{{Key: cardio, Embedding: []float32{1, 0, 0}}})
	if err != nil {
		t.Fatalf("Put (replace) failed: %v", err)
	}
	got, err = store.Get(ctx, model, []string{cardio})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assertVector(t, got[cardio], []float32{1, 0, 0})

	// Entries are scoped by model
	got, err = store.Get(ctx, model+"-other", []string{cardio, neuro})
	if err != nil {
		t.Fatalf("Get (other model) failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no embeddings for another model, got %d", len(got))
	}
}

func assertVector(t *testing.T, got, want []float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dimension %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestKey(t *testing.T) {
	a := storage.Key("Cardiology heart")
	if len(a) != 64 {
		t.Errorf("expected hex sha256 key, got %q", a)
	}
	if a != storage.Key("Cardiology heart") {
		t.Error("expected key to be deterministic")
	}
	if a == storage.Key("Cardiology heart ") {
		t.Error("expected different text to produce a different key")
	}
}

func TestMemoryStore(t *testing.T) {
	store := storage.NewMemory()
	defer store.Close()

	exerciseStore(t, store, "test/model")
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	vec := []float32{1, 2}
	if err := store.Put(ctx, "m", []storage.Entry{{Key: "k", Embedding: vec}}); err != nil {
		t.Fatal(err)
	}
	vec[0] = 99

	got, _ := store.Get(ctx, "m", []string{"k"})
	if got["k"][0] != 1 {
		t.Errorf("expected stored vector to be isolated from caller, got %v", got["k"])
	}
	got["k"][1] = 99

	again, _ := store.Get(ctx, "m", []string{"k"})
	if again["k"][1] != 2 {
		t.Errorf("expected returned vector to be a copy, got %v", again["k"])
	}
}
