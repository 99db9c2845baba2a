// Package apitypes defines the HTTP API request and response types.
// It has no CGO dependencies so the client and MCP shim can import it freely.
package apitypes

import "github.com/MereWhiplash/doctor-finder/internal/types"

// RecommendRequest is the request body for POST /v1/recommendations
type RecommendRequest struct {
	Query string `json:"query"`
	TopN  int    `json:"top_n,omitempty"`
}

// RecommendResponse is the response for POST /v1/recommendations
type RecommendResponse struct {
	Recommendations []types.Recommendation `json:"recommendations"`
}

// DoctorsResponse is the response for GET /v1/doctors
type DoctorsResponse struct {
	Doctors []types.DoctorProfile `json:"doctors"`
	Count   int                   `json:"count"`
}

// SpecialtiesResponse is the response for GET /v1/specialties
type SpecialtiesResponse struct {
	Specialties []string `json:"specialties"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Doctors int    `json:"doctors"`
}
