package qualify

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
	"github.com/wolfman30/lead-analyzer/internal/tenancy"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// StreamFrame is what clients send over the analysis socket. Each frame is
// a full conversation snapshot; Final marks the end of an assistant turn.
type StreamFrame struct {
	Type           string       `json:"type"` // "analyze", "ping"
	ConversationID string       `json:"conversationId"`
	Messages       []MessageDTO `json:"messages"`
	LatestResponse string       `json:"latestResponse"`
	Final          bool         `json:"final"`
}

// StreamReply is what the server pushes back.
type StreamReply struct {
	Type   string  `json:"type"` // "analysis", "pong", "error"
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// StreamHandler scores conversations over a websocket while the assistant
// reply is still streaming.
type StreamHandler struct {
	svc    Qualifier
	logger *logging.Logger
}

// NewStreamHandler creates a streaming analysis handler.
func NewStreamHandler(svc Qualifier, logger *logging.Logger) *StreamHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StreamHandler{svc: svc, logger: logger}
}

// ServeHTTP upgrades to WebSocket.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *StreamHandler) serveWS(conn *websocket.Conn, r *http.Request) {
	raw := strings.TrimSpace(r.Header.Get("X-Org-Id"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("org"))
	}
	if raw == "" {
		_ = websocket.JSON.Send(conn, StreamReply{Type: "error", Error: "missing org parameter"})
		return
	}
	orgID, err := tenancy.ParseOrgID(raw)
	if err != nil {
		_ = websocket.JSON.Send(conn, StreamReply{Type: "error", Error: "invalid org parameter"})
		return
	}

	h.logger.Info("analysis stream opened", "org_id", orgID)
	for {
		var frame StreamFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			h.logger.Debug("analysis stream closed", "org_id", orgID, "error", err)
			return
		}

		switch frame.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, StreamReply{Type: "pong"})
			continue
		case "", "analyze":
		default:
			_ = websocket.JSON.Send(conn, StreamReply{Type: "error", Error: "unknown frame type"})
			continue
		}

		reply := h.handleFrame(r.Context(), orgID, frame)
		if err := websocket.JSON.Send(conn, reply); err != nil {
			h.logger.Debug("analysis stream send failed", "org_id", orgID, "error", err)
			return
		}
	}
}

func (h *StreamHandler) handleFrame(ctx context.Context, orgID string, frame StreamFrame) StreamReply {
	if len(frame.Messages) > maxMessages {
		return StreamReply{Type: "error", Error: "too many messages"}
	}
	req := Request{
		OrgID:          orgID,
		ConversationID: strings.TrimSpace(frame.ConversationID),
		Messages:       toMessages(frame.Messages),
		LatestResponse: frame.LatestResponse,
	}

	run := h.svc.Analyze
	if frame.Final {
		run = h.svc.Qualify
	}
	result, err := run(ctx, req)
	if err != nil {
		if errors.Is(err, analyzer.ErrInvalidMessage) || errors.Is(err, ErrMissingConversation) {
			return StreamReply{Type: "error", Error: err.Error()}
		}
		h.logger.Error("stream analysis failed", "error", err, "org_id", orgID)
		return StreamReply{Type: "error", Error: "analysis failed"}
	}
	return StreamReply{Type: "analysis", Result: result}
}
