package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/lead-analyzer/internal/audit"
	"github.com/wolfman30/lead-analyzer/internal/config"
	httpmiddleware "github.com/wolfman30/lead-analyzer/internal/http/middleware"
	"github.com/wolfman30/lead-analyzer/internal/leads"
	"github.com/wolfman30/lead-analyzer/internal/observability/metrics"
	"github.com/wolfman30/lead-analyzer/internal/qualify"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T) (http.Handler, *leads.InMemoryRepository) {
	t.Helper()

	logger := logging.Discard()
	repo := leads.NewInMemoryRepository()
	tenants, err := config.ParseTenants([]byte("default:\n  name: test\n"))
	if err != nil {
		t.Fatalf("parse tenants: %v", err)
	}
	reg := prometheus.NewRegistry()
	svc := qualify.NewService(tenants, logger,
		qualify.WithLeadsRepository(repo),
		qualify.WithRecorder(metrics.NewLeadMetrics(reg)),
	)

	cfg := &Config{
		Logger:          logger,
		AnalyzeHandler:  qualify.NewHandler(svc, logger),
		StreamHandler:   qualify.NewStreamHandler(svc, logger),
		LeadsHandler:    leads.NewHandler(repo, logger),
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret: testSecret,
	}
	return New(cfg), repo
}

func adminToken(t *testing.T, claims httpmiddleware.AdminClaims) string {
	t.Helper()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func analyzeBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"conversationId": "conv-router",
		"messages": []map[string]string{
			{"role": "user", "content": "Hola, me llamo Juan Pérez"},
			{"role": "user", "content": "mi correo es juan@example.com y mi teléfono 9513183885"},
			{"role": "user", "content": "necesito una página web urgente"},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestRouterAnalyzeEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/leads/analyze", bytes.NewReader(analyzeBody(t)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(orgHeader, "org-router")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var resp struct {
		Analysis struct {
			IsHot bool `json:"isHot"`
		} `json:"analysis"`
		LeadID string `json:"leadId"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Analysis.IsHot {
		t.Fatalf("expected hot lead")
	}
	if _, err := repo.GetByID(context.Background(), "org-router", resp.LeadID); err != nil {
		t.Fatalf("expected lead persisted: %v", err)
	}
}

func TestRouterAnalyzeRequiresOrg(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/leads/analyze", bytes.NewReader(analyzeBody(t)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/leads/analyze", bytes.NewReader(analyzeBody(t)))
	req.Header.Set(orgHeader, "org-router")
	router.ServeHTTP(httptest.NewRecorder(), req)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("leadanalyzer_leads_analyses_total")) {
		t.Fatalf("expected lead metrics in exposition")
	}
}

func TestRouterAdminLeads(t *testing.T) {
	router, _ := newTestRouter(t)

	seed := httptest.NewRequest(http.MethodPost, "/v1/leads/analyze", bytes.NewReader(analyzeBody(t)))
	seed.Header.Set(orgHeader, "org-router")
	router.ServeHTTP(httptest.NewRecorder(), seed)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "no token", status: http.StatusUnauthorized},
		{name: "wrong org", token: adminToken(t, httpmiddleware.AdminClaims{OrgIDs: []string{"other"}}), status: http.StatusForbidden},
		{name: "scoped", token: adminToken(t, httpmiddleware.AdminClaims{OrgIDs: []string{"org-router"}}), status: http.StatusOK},
		{name: "admin", token: adminToken(t, httpmiddleware.AdminClaims{Roles: []string{"admin"}}), status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/orgs/org-router/leads", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp leads.ListLeadsResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Count != 1 {
				t.Fatalf("expected 1 lead, got %d", resp.Count)
			}
		})
	}
}

func TestRouterAdminDisabledWithoutSecret(t *testing.T) {
	router := New(&Config{LeadsHandler: leads.NewHandler(leads.NewInMemoryRepository(), logging.Discard())})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/leads", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

type auditStub struct{ calls int }

func (s *auditStub) Query(_ context.Context, filter audit.Filter) ([]audit.Record, error) {
	s.calls++
	return []audit.Record{{ID: "r1", OrgID: filter.OrgID}}, nil
}

func TestRouterAdminAudit(t *testing.T) {
	stub := &auditStub{}
	router := New(&Config{
		LeadsHandler:    leads.NewHandler(leads.NewInMemoryRepository(), logging.Discard()),
		AuditHandler:    audit.NewHandler(stub, logging.Discard()),
		AdminAuthSecret: testSecret,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/orgs/org-1/audit?hot=true", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, httpmiddleware.AdminClaims{OrgIDs: []string{"org-1"}}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp audit.ListRecordsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stub.calls != 1 || resp.Count != 1 || resp.Records[0].OrgID != "org-1" {
		t.Fatalf("unexpected audit response %+v", resp)
	}
}
