package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
	"github.com/wolfman30/clinic-booking-assistant/internal/tools"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const maxToolBody = 1 << 20

// ToolInvocation is the webhook body the orchestrator posts for each function call.
type ToolInvocation struct {
	ToolName   string         `json:"tool_name"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
}

// ToolInvocationResponse echoes the call id. Interim holds the holding
// messages spoken while the call ran, in order.
type ToolInvocationResponse struct {
	ToolCallID string       `json:"tool_call_id"`
	Interim    []string     `json:"interim"`
	Result     tools.Result `json:"result"`
}

// StreamFrame is one websocket message in either direction.
type StreamFrame struct {
	Type       string         `json:"type"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Text       string         `json:"text,omitempty"`
	Result     *tools.Result  `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ToolsHandler exposes the dispatcher over HTTP and websocket.
type ToolsHandler struct {
	dispatcher *tools.Dispatcher
	upgrader   websocket.Upgrader
	logger     *logging.Logger
}

// ToolsHandlerConfig configures the ToolsHandler.
type ToolsHandlerConfig struct {
	Dispatcher     *tools.Dispatcher
	AllowedOrigins []string
	Logger         *logging.Logger
}

// NewToolsHandler creates a new ToolsHandler.
func NewToolsHandler(cfg ToolsHandlerConfig) *ToolsHandler {
	if cfg.Dispatcher == nil {
		panic("handlers: tools dispatcher required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ToolsHandler{
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// Invoke handles POST /tools/invoke.
func (h *ToolsHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxToolBody))
	if err != nil {
		h.logger.Error("tools: failed to read body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	var inv ToolInvocation
	if err := json.Unmarshal(body, &inv); err != nil || strings.TrimSpace(inv.ToolName) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tool_name is required"})
		return
	}
	if inv.ToolCallID == "" {
		inv.ToolCallID = uuid.NewString()
	}

	h.logger.Info("tools: invoke", "tool_name", inv.ToolName, "tool_call_id", inv.ToolCallID)

	var interim []string
	ack := scheduling.AckFunc(func(_ context.Context, text string) { interim = append(interim, text) })
	result := h.dispatcher.Invoke(r.Context(), tools.Call{
		ID:        inv.ToolCallID,
		Name:      inv.ToolName,
		Arguments: stringArguments(inv.Arguments),
	}, ack)

	if interim == nil {
		interim = []string{}
	}
	writeJSON(w, http.StatusOK, ToolInvocationResponse{ToolCallID: inv.ToolCallID, Interim: interim, Result: result})
}

// Schemas handles GET /tools/schemas.
func (h *ToolsHandler) Schemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools.Schemas()})
}

// Stream handles GET /tools/stream. Calls on one connection run one at a
// time in arrival order; interim frames for a call are written before its
// result frame.
func (h *ToolsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("tools: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxToolBody)

	session := uuid.NewString()
	h.logger.Info("tools: stream opened", "session_id", session, "remote_ip", r.RemoteAddr)
	ctx := r.Context()

	for {
		var frame StreamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("tools: stream read failed", "session_id", session, "error", err)
			}
			h.logger.Info("tools: stream closed", "session_id", session)
			return
		}
		if frame.Type != "call" || strings.TrimSpace(frame.ToolName) == "" {
			if err := conn.WriteJSON(StreamFrame{Type: "error", ToolCallID: frame.ToolCallID, Error: "expected a call frame with tool_name"}); err != nil {
				return
			}
			continue
		}
		if frame.ToolCallID == "" {
			frame.ToolCallID = uuid.NewString()
		}

		callID := frame.ToolCallID
		var writeErr error
		ack := scheduling.AckFunc(func(_ context.Context, text string) {
			if writeErr == nil {
				writeErr = conn.WriteJSON(StreamFrame{Type: "interim", ToolCallID: callID, Text: text})
			}
		})
		result := h.dispatcher.Invoke(ctx, tools.Call{
			ID:        callID,
			Name:      frame.ToolName,
			Arguments: stringArguments(frame.Arguments),
		}, ack)
		if writeErr != nil {
			h.logger.Warn("tools: interim write failed", "session_id", session, "error", writeErr)
			return
		}
		if err := conn.WriteJSON(StreamFrame{Type: "result", ToolCallID: callID, Result: &result}); err != nil {
			h.logger.Warn("tools: result write failed", "session_id", session, "error", err)
			return
		}
	}
}

// stringArguments flattens JSON argument values; LLMs sometimes send
// numbers or booleans where strings are declared.
func stringArguments(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := map[string]struct{}{}
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
