package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

type stubQuerier struct {
	records []Record
	err     error
	got     Filter
}

func (s *stubQuerier) Query(_ context.Context, filter Filter) ([]Record, error) {
	s.got = filter
	return s.records, s.err
}

func serveAudit(h *Handler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/admin/orgs/{orgID}/audit", h.ListRecords)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListRecords_ParsesFilter(t *testing.T) {
	store := &stubQuerier{records: []Record{{ID: "a", OrgID: "org-1", IsHot: true, Score: 110}}}
	h := NewHandler(store, logging.Discard())

	rec := serveAudit(h, "/admin/orgs/org-1/audit?hot=true&conversation=conv-9&since=2026-01-01T00:00:00Z&limit=10&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "org-1", store.got.OrgID)
	assert.Equal(t, "conv-9", store.got.ConversationID)
	assert.True(t, store.got.HotOnly)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), store.got.StartTime)
	assert.True(t, store.got.EndTime.IsZero())
	assert.Equal(t, 10, store.got.Limit)
	assert.Equal(t, 5, store.got.Offset)

	var resp ListRecordsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "a", resp.Records[0].ID)
}

func TestListRecords_Defaults(t *testing.T) {
	store := &stubQuerier{}
	rec := serveAudit(NewHandler(store, logging.Discard()), "/admin/orgs/org-1/audit?limit=9999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, store.got.Limit)
	assert.JSONEq(t, `{"records":[],"count":0,"offset":0,"limit":50}`, rec.Body.String())
}

func TestListRecords_BadTimestamp(t *testing.T) {
	rec := serveAudit(NewHandler(&stubQuerier{}, logging.Discard()), "/admin/orgs/org-1/audit?until=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "until")
}

func TestListRecords_StoreError(t *testing.T) {
	rec := serveAudit(NewHandler(&stubQuerier{err: errors.New("db down")}, logging.Discard()), "/admin/orgs/org-1/audit")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
