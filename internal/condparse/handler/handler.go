package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/condition/parser"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
	"github.com/msto63/condparse/pkg/core/health"
	"github.com/msto63/condparse/pkg/core/logging"
)

// RequestIDHeader carries the request id on HTTP requests and responses
const RequestIDHeader = "X-Request-ID"

// ParseRequest is the JSON body of a parse request
type ParseRequest struct {
	Expression string `json:"expression"`
	Mode       string `json:"mode,omitempty"`
	Rule       string `json:"rule,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// ParseResponse is the JSON body of a successful parse
type ParseResponse struct {
	Nodes      []ast.Node `json:"nodes"`
	Mode       string     `json:"mode"`
	Rule       string     `json:"rule,omitempty"`
	CacheHit   bool       `json:"cache_hit"`
	DurationMs float64    `json:"duration_ms"`
	RequestID  string     `json:"request_id"`
}

// ErrorResponse describes a failed request. Syntax errors add the
// expectations and the failure position.
type ErrorResponse struct {
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	Expectations []string      `json:"expectations,omitempty"`
	Position     *ast.Position `json:"position,omitempty"`
}

// Handler serves the HTTP API, the health endpoint and the WebSocket endpoint
type Handler struct {
	service   *service.Service
	health    *health.Registry
	ws        *WebSocketHandler
	logger    *logging.Logger
	startTime time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(svc *service.Service, registry *health.Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.New("condparse-http")
	}
	return &Handler{
		service:   svc,
		health:    registry,
		ws:        NewWebSocketHandler(svc, logger),
		logger:    logger,
		startTime: time.Now(),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch path := strings.TrimSuffix(r.URL.Path, "/"); path {
	case "/healthz":
		h.handleHealth(w, r)
	case "/ws":
		h.ws.ServeHTTP(w, r)
	case "/api/v1/parse":
		h.handleParse(w, r)
	case "/api/v1/rules":
		h.handleRules(w, r)
	case "/api/v1/stats":
		h.handleStats(w, r)
	default:
		h.writeError(w, http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: "no route for " + r.URL.Path})
	}
}

// handleHealth runs the registered checks
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "Use GET"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := h.health.Check(ctx)
	code := http.StatusOK
	if !report.Serving() {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, report)
}

// handleParse parses the expression in the JSON body
func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "Use POST"})
		return
	}

	var body ParseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestLimit(h.service.MaxInputLength())))
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Code: string(cperrors.CodeInvalidInput), Message: "invalid JSON body: " + err.Error()})
		return
	}
	if body.RequestID == "" {
		body.RequestID = r.Header.Get(RequestIDHeader)
	}

	resp, err := parse(r.Context(), h.service, body)
	if err != nil {
		status, payload := errorPayload(err)
		h.writeError(w, status, payload)
		return
	}
	w.Header().Set(RequestIDHeader, resp.RequestID)
	h.writeJSON(w, http.StatusOK, resp)
}

// handleRules lists the rules accepted in rule mode
func (h *Handler) handleRules(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": h.service.Rules()})
}

// handleStats reports service counters
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": h.service.Stats(),
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Writing response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	h.writeJSON(w, status, resp)
}

// requestLimit bounds an encoded parse request. JSON escaping can double the
// expression.
func requestLimit(maxInput int) int64 {
	return int64(maxInput)*2 + 1024
}

// parse runs a request through the service, shared by HTTP and WebSocket
func parse(ctx context.Context, svc *service.Service, body ParseRequest) (*ParseResponse, error) {
	mode, err := service.ParseMode(body.Mode)
	if err != nil {
		return nil, err
	}
	requestID := body.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	resp, err := svc.Parse(ctx, &service.Request{
		Expression: body.Expression,
		Mode:       mode,
		Rule:       body.Rule,
		RequestID:  requestID,
	})
	if err != nil {
		return nil, err
	}
	return &ParseResponse{
		Nodes:      resp.Nodes,
		Mode:       string(resp.Mode),
		Rule:       resp.Rule,
		CacheHit:   resp.CacheHit,
		DurationMs: float64(resp.Duration.Microseconds()) / 1000,
		RequestID:  resp.RequestID,
	}, nil
}

// errorPayload maps an error to an HTTP status and response body
func errorPayload(err error) (int, ErrorResponse) {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		pos := pe.Position
		return http.StatusBadRequest, ErrorResponse{
			Code:         string(cperrors.CodeSyntax),
			Message:      pe.Message,
			Expectations: pe.Expectations,
			Position:     &pos,
		}
	}

	code := cperrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case cperrors.CodeInputTooLarge:
		status = http.StatusRequestEntityTooLarge
	case cperrors.CodeUnknownRule:
		status = http.StatusNotFound
	case cperrors.CodeCanceled:
		status = http.StatusRequestTimeout
	default:
		if code.IsClientError() {
			status = http.StatusBadRequest
		}
	}
	return status, ErrorResponse{Code: string(code), Message: err.Error()}
}
