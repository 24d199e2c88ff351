package qualify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
	"github.com/wolfman30/lead-analyzer/internal/tenancy"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const maxMessages = 500

// Qualifier is the part of Service the HTTP layer needs.
type Qualifier interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
	Qualify(ctx context.Context, req Request) (*Result, error)
}

// MessageDTO is one conversation turn on the wire.
type MessageDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// AnalyzeRequest is the body of POST /v1/leads/analyze.
type AnalyzeRequest struct {
	ConversationID string       `json:"conversationId" validate:"required,max=200"`
	Messages       []MessageDTO `json:"messages" validate:"max=500,dive"`
	LatestResponse string       `json:"latestResponse"`
	// DryRun scores without persisting or notifying.
	DryRun bool `json:"dryRun"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// Handler serves the analysis endpoints.
type Handler struct {
	svc      Qualifier
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates a new analysis handler.
func NewHandler(svc Qualifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Analyze handles POST /v1/leads/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Org-Id"})
		return
	}

	var body AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: validationDetails(err)})
		return
	}

	req := Request{
		OrgID:          orgID,
		ConversationID: strings.TrimSpace(body.ConversationID),
		Messages:       toMessages(body.Messages),
		LatestResponse: body.LatestResponse,
	}

	run := h.svc.Qualify
	if body.DryRun {
		run = h.svc.Analyze
	}
	result, err := run(r.Context(), req)
	if err != nil {
		if errors.Is(err, analyzer.ErrInvalidMessage) || errors.Is(err, ErrMissingOrgID) || errors.Is(err, ErrMissingConversation) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("failed to analyze conversation", "error", err, "org_id", orgID, "conversation_id", req.ConversationID)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to analyze conversation"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func toMessages(in []MessageDTO) []analyzer.Message {
	out := make([]analyzer.Message, 0, len(in))
	for _, m := range in {
		out = append(out, analyzer.Message{Role: analyzer.Role(m.Role), Content: m.Content})
	}
	return out
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
