package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/MereWhiplash/doctor-finder/internal/service"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// EmptyQueryWarning is shown when the form is submitted without symptoms
const EmptyQueryWarning = "Please enter your symptoms before searching."

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Query           string
	TopN            int
	MaxTopN         int
	Specialty       string
	Specialties     []string
	Warning         string
	Error           string
	Recommendations []types.Recommendation
	Directory       []types.DoctorProfile
}

// FindParam is set only by the symptom form's submit button
const FindParam = "find"

// Page handles GET /, the web interface.
// Query parameters: q (symptoms), top_n (1-10), specialty (directory filter).
// Ranking runs only when FindParam is present; the directory form carries q
// and top_n to keep the inputs filled but never triggers a search.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	data := pageData{
		Query:     params.Get("q"),
		TopN:      service.DefaultTopN,
		MaxTopN:   service.MaxTopN,
		Specialty: strings.TrimSpace(params.Get("specialty")),
	}
	if n, err := strconv.Atoi(params.Get("top_n")); err == nil {
		data.TopN = service.ClampTopN(n)
	}
	if data.Specialty == "" {
		data.Specialty = types.SpecialtyAll
	}

	if params.Has(FindParam) {
		recs, err := h.svc.Recommend(ctx, data.Query, data.TopN)
		switch {
		case errors.Is(err, types.ErrEmptyQuery):
			h.metrics.ObserveRecommendation("empty_query", 0, false)
			data.Warning = EmptyQueryWarning
		case err != nil:
			h.metrics.ObserveRecommendation("error", 0, false)
			h.logger.ErrorContext(ctx, "recommendation failed", "error", err)
			data.Error = "Could not compute recommendations right now. Please try again."
		default:
			h.metrics.ObserveRecommendation("ok", topScore(recs), len(recs) > 0)
			data.Recommendations = recs
		}
	}

	var err error
	if data.Specialties, err = h.svc.Specialties(ctx); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if data.Directory, err = h.svc.Doctors(ctx, data.Specialty); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(ctx, "failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
