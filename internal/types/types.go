// Package types contains shared data types that have no CGO dependencies.
// The API client and MCP shim import it without pulling in sqlite-vec.
package types

import "errors"

// SpecialtyAll is the directory filter value that selects every doctor.
const SpecialtyAll = "All"

var (
	// ErrEmptyQuery is returned when a recommendation is requested without query text
	ErrEmptyQuery = errors.New("query is empty")
	// ErrMissingColumn is returned when the roster source lacks a required column
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyText is returned when asked to embed blank text
	ErrEmptyText = errors.New("cannot embed empty text")
	// ErrDegenerateVector is returned for empty or all-zero embeddings
	ErrDegenerateVector = errors.New("degenerate embedding vector")
	// ErrDimensionMismatch is returned when two embeddings have different lengths
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCorpusMismatch is returned when profiles and embeddings are not index-aligned
	ErrCorpusMismatch = errors.New("profile and embedding counts differ")
)

// DoctorProfile is one roster entry
type DoctorProfile struct {
	Name        string `json:"name"`
	Specialties string `json:"specialties"`
	Location    string `json:"location"`
	Overview    string `json:"overview"`
	ProfileLink string `json:"profile_link"`
	// CombinedText is the embedding input, derived from Specialties and Overview
	CombinedText string `json:"-"`
}

// Derive recomputes CombinedText from the source fields.
// Call it whenever Specialties or Overview change.
func (p *DoctorProfile) Derive() {
	p.CombinedText = p.Specialties + " " + p.Overview
}

// Matches reports whether the profile is selected by a directory filter.
// The comparison is exact and case-sensitive.
func (p DoctorProfile) Matches(specialty string) bool {
	return specialty == "" || specialty == SpecialtyAll || p.Specialties == specialty
}

// Recommendation is a ranked doctor with its cosine similarity to the query
type Recommendation struct {
	Doctor DoctorProfile `json:"doctor"`
	Score  float64       `json:"score"`
}
