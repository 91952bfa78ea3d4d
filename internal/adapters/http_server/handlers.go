package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/app"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

type Handlers struct {
	Q   *app.QueryService
	Ing *app.IngestionService
	Ins *app.InsightService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/businesses/{businessID}", func(r chi.Router) {
		r.Post("/reviews", h.submitReview)
		r.Get("/reviews", h.listReviews)
		r.Post("/sync", h.requestSync)
		r.Get("/analyses", h.listAnalyses)
		r.Get("/insights", h.getInsights)
		r.Get("/attention", h.listAttention)
		r.Get("/tasks", h.listTasks)
		r.Post("/tasks/optimize", h.optimizeTasks)
	})
	s.mux.Get("/v1/analyses/{id}", h.getAnalysis)
	s.mux.Post("/v1/analyses/{id}/resolve", h.resolveAnalysis)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeConditional serves v with a weak ETag, short-circuiting to 304 when
// the client already holds this version.
func writeConditional(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func limitParam(r *http.Request) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return 50, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > 200 {
		return 0, false
	}
	return l, true
}

/********** response shapes **********/

type reviewView struct {
	ID         int64    `json:"id"`
	BusinessID string   `json:"businessId"`
	AuthorName *string  `json:"authorName,omitempty"`
	Text       string   `json:"text"`
	Category   *string  `json:"category,omitempty"`
	IsAnalyzed bool     `json:"isAnalyzed"`
	Source     string   `json:"source"`
	Rating     *float64 `json:"rating,omitempty"`
	CreatedAt  string   `json:"createdAt"`
}

func toReviewView(r domain.Review) reviewView {
	v := reviewView{
		ID:         r.ID,
		BusinessID: r.BusinessID,
		AuthorName: r.AuthorName,
		Text:       r.Text,
		IsAnalyzed: r.IsAnalyzed,
		Source:     string(r.Source),
		Rating:     r.Rating,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.Category != nil {
		c := string(*r.Category)
		v.Category = &c
	}
	return v
}

type analysisView struct {
	ID                int64   `json:"id"`
	ReviewID          int64   `json:"reviewId"`
	BusinessID        string  `json:"businessId"`
	Text              string  `json:"text"`
	Category          string  `json:"category"`
	Sentiment         string  `json:"sentiment"`
	Summary           string  `json:"summary"`
	Suggestions       *string `json:"suggestions,omitempty"`
	GeneratedResponse *string `json:"generatedResponse,omitempty"`
	IsResolved        bool    `json:"isResolved"`
	CreatedAt         string  `json:"createdAt"`
}

func toAnalysisView(a domain.Analysis) analysisView {
	return analysisView{
		ID:                a.ID,
		ReviewID:          a.ReviewID,
		BusinessID:        a.BusinessID,
		Text:              a.Text,
		Category:          string(a.Category),
		Sentiment:         string(a.Sentiment),
		Summary:           a.Summary,
		Suggestions:       a.Suggestions,
		GeneratedResponse: a.GeneratedResponse,
		IsResolved:        a.IsResolved,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type taskView struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AnalysisID  *int64  `json:"analysisId,omitempty"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate,omitempty"`
	IsCompleted bool    `json:"isCompleted"`
	CreatedBy   string  `json:"createdBy"`
	CreatedAt   string  `json:"createdAt"`
}

func toTaskView(t domain.Task) taskView {
	v := taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AnalysisID:  t.AnalysisID,
		Priority:    string(t.Priority),
		IsCompleted: t.IsCompleted,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.DueDate != nil {
		d := t.DueDate.UTC().Format(time.RFC3339)
		v.DueDate = &d
	}
	return v
}

/********** handlers **********/

type submitReviewRequest struct {
	UserID   *string `json:"userId"`
	Text     string  `json:"text"`
	Category *string `json:"category"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be JSON")
		return
	}

	var cat *domain.Category
	if req.Category != nil {
		c := domain.Category(*req.Category)
		switch c {
		case domain.CategoryFood, domain.CategoryService, domain.CategoryOverall:
			cat = &c
		default:
			writeProblem(w, http.StatusBadRequest, "Invalid category", "category must be food, service or overall")
			return
		}
	}

	rv, err := h.Ing.SubmitUserReview(r.Context(), businessID, req.UserID, req.Text, cat)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid review", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toReviewView(rv))
}

func (h *Handlers) requestSync(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if err := h.Ing.RequestSync(r.Context(), businessID); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Sync request failed", "could not queue the sync")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	limit, ok := limitParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}

	rs, err := h.Q.ListReviews(r.Context(), businessID, domain.PageQuery{Limit: limit})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Listing failed", "could not list reviews")
		return
	}
	out := make([]reviewView, 0, len(rs))
	for _, rv := range rs {
		out = append(out, toReviewView(rv))
	}
	writeConditional(w, r, out)
}

func (h *Handlers) listAnalyses(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	limit, ok := limitParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}

	as, err := h.Q.ListAnalyses(r.Context(), businessID, domain.PageQuery{Limit: limit})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Listing failed", "could not list analyses")
		return
	}
	out := make([]analysisView, 0, len(as))
	for _, a := range as {
		out = append(out, toAnalysisView(a))
	}
	writeConditional(w, r, out)
}

func (h *Handlers) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	a, err := h.Q.GetAnalysis(r.Context(), id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "analysis not found")
		return
	}
	writeConditional(w, r, toAnalysisView(a))
}

func (h *Handlers) resolveAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	a, err := h.Q.GetAnalysis(r.Context(), id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "analysis not found")
		return
	}
	if err := h.Ins.Resolve(r.Context(), id, a.BusinessID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "analysis not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Resolve failed", "could not resolve analysis")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getInsights(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	in, err := h.Ins.Insights(r.Context(), businessID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Insights failed", "could not compute insights")
		return
	}
	writeConditional(w, r, in)
}

func (h *Handlers) listAttention(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	limit, ok := limitParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}
	as, err := h.Ins.ReviewsNeedingAttention(r.Context(), businessID, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Listing failed", "could not list analyses needing attention")
		return
	}
	out := make([]analysisView, 0, len(as))
	for _, a := range as {
		out = append(out, toAnalysisView(a))
	}
	writeConditional(w, r, out)
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	limit, ok := limitParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}

	var (
		ts  []domain.Task
		err error
	)
	switch kind := r.URL.Query().Get("type"); kind {
	case "", "review":
		ts, err = h.Q.ListReviewTasks(r.Context(), businessID, limit)
	case "optimization":
		ts, err = h.Q.ListOptimizationTasks(r.Context(), businessID, limit)
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid type", "type must be review or optimization")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Listing failed", "could not list tasks")
		return
	}
	out := make([]taskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTaskView(t))
	}
	writeConditional(w, r, out)
}

func (h *Handlers) optimizeTasks(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	created, err := h.Ins.GenerateOptimizationTasks(r.Context(), businessID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Generation failed", "could not generate optimization tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}
