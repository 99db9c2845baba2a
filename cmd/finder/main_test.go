package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/doctor-finder/internal/api"
	"github.com/MereWhiplash/doctor-finder/internal/corpus"
	"github.com/MereWhiplash/doctor-finder/internal/embedder/mock"
	"github.com/MereWhiplash/doctor-finder/internal/service"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

const rosterCSV = `name,specialties,location,overview,profile_link
"Alice Heart, MD",Cardiology,Springfield IL,heart disease expert,https://example.com/alice
"Bob Brain, DO",Neurology,Austin TX,migraine specialist,https://example.com/bob
"Dan Beat, MD",Cardiology,Denver CO,arrhythmia clinic,https://example.com/dan
`

// fakeOllama serves trigram vectors over the Ollama embeddings endpoint
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		text := strings.TrimPrefix(strings.TrimPrefix(req.Prompt, "search_document: "), "search_query: ")
		json.NewEncoder(w).Encode(map[string]any{"embedding": mock.Vector(text)})
	}))
	t.Cleanup(server.Close)
	return server
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"finder"}, args...))
	return out.String(), err
}

func localArgs(t *testing.T) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doctors.csv")
	require.NoError(t, os.WriteFile(path, []byte(rosterCSV), 0o600))
	return []string{"--roster", path, "--ollama-url", fakeOllama(t).URL, "--cache-driver", "memory"}
}

func TestRecommendCommand_Local(t *testing.T) {
	out, err := run(t, append(localArgs(t), "recommend", "-n", "1", "I", "have", "severe", "migraines")...)
	require.NoError(t, err)

	assert.Contains(t, out, "1. Bob Brain")
	assert.Contains(t, out, "Location:    Austin, TX")
	assert.Contains(t, out, "Match Score: ")
	assert.NotContains(t, out, "2. ")
}

func TestRecommendCommand_EmptyQuery(t *testing.T) {
	_, err := run(t, append(localArgs(t), "recommend")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "describe your symptoms")
}

func TestDoctorsCommand_Local(t *testing.T) {
	out, err := run(t, append(localArgs(t), "doctors", "--specialty", "Cardiology")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Alice Heart\tCardiology\tSpringfield, IL")
	assert.Contains(t, out, "Dan Beat\tCardiology")
	assert.NotContains(t, out, "Bob Brain")
	assert.Contains(t, out, "2 doctor(s)")
}

func TestSpecialtiesCommand_Local(t *testing.T) {
	out, err := run(t, append(localArgs(t), "specialties")...)
	require.NoError(t, err)
	assert.Equal(t, "All\nCardiology\nNeurology\n", out)
}

func TestMissingRosterIsFatal(t *testing.T) {
	_, err := run(t, "--roster", filepath.Join(t.TempDir(), "missing.csv"), "specialties")
	assert.Error(t, err)
}

func TestRecommendCommand_Remote(t *testing.T) {
	profiles := []types.DoctorProfile{
		{Name: "Remote Heart", Specialties: "Cardiology", Overview: "heart disease expert"},
		{Name: "Remote Brain", Specialties: "Neurology", Overview: "migraine specialist"},
	}
	for i := range profiles {
		profiles[i].Derive()
	}
	c, err := corpus.Build(context.Background(), profiles, mock.NewEmbedder())
	require.NoError(t, err)

	r := chi.NewRouter()
	api.Routes(r, api.NewHandlers(service.New(c, mock.NewEmbedder()), nil, nil), nil)
	server := httptest.NewServer(r)
	defer server.Close()

	out, err := run(t, "--api-url", server.URL, "recommend", "--top-n", "1", "heart disease")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Remote Heart")

	out, err = run(t, "--api-url", server.URL, "specialties")
	require.NoError(t, err)
	assert.Equal(t, "All\nCardiology\nNeurology\n", out)
}

func TestLogLevelValidated(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "specialties")
	assert.Error(t, err)
}
