package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// Querier reads audit records.
type Querier interface {
	Query(ctx context.Context, filter Filter) ([]Record, error)
}

// Handler serves the audit trail to admins.
type Handler struct {
	store  Querier
	logger *logging.Logger
}

// NewHandler creates a new audit handler.
func NewHandler(store Querier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListRecordsResponse is the response for listing audit records.
type ListRecordsResponse struct {
	Records []Record `json:"records"`
	Count   int      `json:"count"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
}

// ListRecords handles GET /admin/orgs/{orgID}/audit.
// Query params: conversation, hot, since, until (RFC3339), limit, offset.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if orgID == "" {
		http.Error(w, "missing org_id", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filter := Filter{
		OrgID:          orgID,
		ConversationID: q.Get("conversation"),
		Limit:          50,
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 200 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	if hot, err := strconv.ParseBool(q.Get("hot")); err == nil {
		filter.HotOnly = hot
	}
	for param, dst := range map[string]*time.Time{"since": &filter.StartTime, "until": &filter.EndTime} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid "+param+": expected RFC3339", http.StatusBadRequest)
			return
		}
		*dst = ts
	}

	records, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit records", "error", err, "org_id", orgID)
		http.Error(w, "failed to query audit records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListRecordsResponse{
		Records: records,
		Count:   len(records),
		Offset:  filter.Offset,
		Limit:   filter.Limit,
	})
}
