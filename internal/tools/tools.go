// Package tools exposes the doctor finder as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// Backend answers tool calls. *service.Service serves them from the local
// corpus and *client.Client forwards them to a remote API.
type Backend interface {
	Recommend(ctx context.Context, query string, topN int) ([]types.Recommendation, error)
	Doctors(ctx context.Context, specialty string) ([]types.DoctorProfile, error)
	Specialties(ctx context.Context) ([]string, error)
}

// Handler holds dependencies for tool handlers
type Handler struct {
	backend Backend
}

// NewHandler creates tool handlers over backend
func NewHandler(backend Backend) *Handler {
	return &Handler{backend: backend}
}

// RecommendInput defines the input schema for df_recommend
type RecommendInput struct {
	Query string `json:"query" jsonschema:"Free-text description of the patient's symptoms"`
	TopN  int    `json:"top_n,omitempty" jsonschema:"Number of doctors to return, 1-10 (default: 5)"`
}

// RecommendOutput defines the output schema for df_recommend
type RecommendOutput struct {
	Recommendations []types.Recommendation `json:"recommendations"`
}

// DoctorsInput defines the input schema for df_doctors
type DoctorsInput struct {
	Specialty string `json:"specialty,omitempty" jsonschema:"Exact specialty to filter by, or All (default: All)"`
}

// DoctorsOutput defines the output schema for df_doctors
type DoctorsOutput struct {
	Doctors []types.DoctorProfile `json:"doctors"`
	Count   int                   `json:"count"`
}

// SpecialtiesInput defines the input schema for df_specialties
type SpecialtiesInput struct{}

// SpecialtiesOutput defines the output schema for df_specialties
type SpecialtiesOutput struct {
	Specialties []string `json:"specialties"`
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// Register adds all doctor finder tools to the MCP server
func Register(server *mcp.Server, backend Backend) {
	h := NewHandler(backend)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "df_recommend",
		Description: "Recommend doctors whose profiles best match a description of symptoms",
	}, h.Recommend)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "df_doctors",
		Description: "List doctors in the directory, optionally filtered by specialty",
	}, h.Doctors)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "df_specialties",
		Description: "List the specialty filter values, starting with All",
	}, h.Specialties)
}

func (h *Handler) Recommend(ctx context.Context, req *mcp.CallToolRequest, input RecommendInput) (*mcp.CallToolResult, RecommendOutput, error) {
	recs, err := h.backend.Recommend(ctx, input.Query, input.TopN)
	if errors.Is(err, types.ErrEmptyQuery) {
		return errorResult("query is required: describe the symptoms"), RecommendOutput{}, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to recommend: %v", err)), RecommendOutput{}, nil
	}

	if len(recs) == 0 {
		return textResult("No doctors found."), RecommendOutput{Recommendations: []types.Recommendation{}}, nil
	}

	var b strings.Builder
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s (%s) - %s\n   Match Score: %.4f\n   %s\n",
			i+1, r.Doctor.Name, r.Doctor.Specialties, r.Doctor.Location, r.Score, r.Doctor.ProfileLink)
	}
	return textResult(b.String()), RecommendOutput{Recommendations: recs}, nil
}

func (h *Handler) Doctors(ctx context.Context, req *mcp.CallToolRequest, input DoctorsInput) (*mcp.CallToolResult, DoctorsOutput, error) {
	doctors, err := h.backend.Doctors(ctx, input.Specialty)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list doctors: %v", err)), DoctorsOutput{}, nil
	}

	if len(doctors) == 0 {
		return textResult("No doctors found."), DoctorsOutput{Doctors: []types.DoctorProfile{}}, nil
	}

	result, err := json.MarshalIndent(doctors, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to format response: %v", err)), DoctorsOutput{}, nil
	}
	return textResult(string(result)), DoctorsOutput{Doctors: doctors, Count: len(doctors)}, nil
}

func (h *Handler) Specialties(ctx context.Context, req *mcp.CallToolRequest, input SpecialtiesInput) (*mcp.CallToolResult, SpecialtiesOutput, error) {
	specialties, err := h.backend.Specialties(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list specialties: %v", err)), SpecialtiesOutput{}, nil
	}

	return textResult(strings.Join(specialties, "\n")), SpecialtiesOutput{Specialties: specialties}, nil
}
