package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Handler serves the admin lead endpoints.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListLeadsResponse is the body of GET /admin/orgs/{orgID}/leads.
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/orgs/{orgID}/leads.
// Query params: hot, classification (hot|warm|cold), min_score, limit, offset.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if orgID == "" {
		http.Error(w, "missing org_id", http.StatusBadRequest)
		return
	}

	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	leads, err := h.repo.ListByOrg(r.Context(), orgID, filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err, "org_id", orgID)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}

	writeJSON(w, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/orgs/{orgID}/leads/{leadID}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	leadID := chi.URLParam(r, "leadID")
	if orgID == "" || leadID == "" {
		http.Error(w, "missing org_id or lead_id", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), orgID, leadID)
	switch {
	case errors.Is(err, ErrLeadNotFound):
		http.Error(w, "lead not found", http.StatusNotFound)
	case err != nil:
		h.logger.Error("failed to get lead", "error", err, "org_id", orgID, "lead_id", leadID)
		http.Error(w, "failed to get lead", http.StatusInternalServerError)
	default:
		writeJSON(w, lead)
	}
}

// parseListFilter clamps paging silently and rejects bad filter values.
func parseListFilter(q url.Values) (ListLeadsFilter, error) {
	filter := ListLeadsFilter{Limit: defaultListLimit}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= maxListLimit {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	if hot, err := strconv.ParseBool(q.Get("hot")); err == nil {
		filter.HotOnly = hot
	}

	switch class := strings.ToLower(strings.TrimSpace(q.Get("classification"))); class {
	case "", analyzer.ClassHot, analyzer.ClassWarm, analyzer.ClassCold:
		filter.Classification = class
	default:
		return ListLeadsFilter{}, fmt.Errorf("invalid classification %q", class)
	}

	if raw := q.Get("min_score"); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < 0 || score > analyzer.MaxScore {
			return ListLeadsFilter{}, fmt.Errorf("min_score must be between 0 and %d", analyzer.MaxScore)
		}
		filter.MinScore = score
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
