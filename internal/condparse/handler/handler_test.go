package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/core/health"
	cplog "github.com/msto63/condparse/pkg/core/log"
	"github.com/msto63/condparse/pkg/core/logging"
	"github.com/msto63/condparse/pkg/core/version"
)

func newTestHandler(t *testing.T, cfg service.Config, checks ...health.Checker) *Handler {
	t.Helper()
	logger := logging.Wrap(cplog.Discard())
	cfg.Logger = logger
	svc, err := service.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(svc.Close)

	registry := health.NewRegistry("condparse", version.Version)
	registry.Register(health.ErrorCheck("parser", svc.Probe))
	for _, c := range checks {
		registry.Register(c)
	}
	return NewHandler(svc, registry, logger)
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		checks []health.Checker
		want   int
		status string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{
			name: "degraded still serving",
			checks: []health.Checker{health.NewChecker("slow", func(context.Context) health.CheckResult {
				return health.CheckResult{Status: health.StatusDegraded}
			})},
			want:   http.StatusOK,
			status: "degraded",
		},
		{
			name: "unhealthy",
			checks: []health.Checker{health.ErrorCheck("disk", func(context.Context) error {
				return errors.New("full")
			})},
			want:   http.StatusServiceUnavailable,
			status: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, service.DefaultConfig(), tt.checks...)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var report health.Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if string(report.Status) != tt.status {
				t.Errorf("report status = %q, want %q", report.Status, tt.status)
			}
		})
	}
}

func TestHandler_Parse(t *testing.T) {
	h := newTestHandler(t, service.Config{MaxInputLength: 32})

	tests := []struct {
		name     string
		method   string
		body     string
		want     int
		wantCode string
	}{
		{"expression", http.MethodPost, `{"expression":"'a' $(B)"}`, http.StatusOK, ""},
		{"condition", http.MethodPost, `{"expression":"'a'=='b'","mode":"condition"}`, http.StatusOK, ""},
		{"syntax error", http.MethodPost, `{"expression":"$(A"}`, http.StatusBadRequest, "SYNTAX"},
		{"too large", http.MethodPost, `{"expression":"'` + strings.Repeat("x", 40) + `'"}`, http.StatusRequestEntityTooLarge, "INPUT_TOO_LARGE"},
		{"unknown rule", http.MethodPost, `{"expression":"A","mode":"rule","rule":"item"}`, http.StatusNotFound, "UNKNOWN_RULE"},
		{"bad mode", http.MethodPost, `{"expression":"A","mode":"tree"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad json", http.MethodPost, `{`, http.StatusBadRequest, "INVALID_INPUT"},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/api/v1/parse", strings.NewReader(tt.body))
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.wantCode == "" {
				var resp ParseResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode error = %v", err)
				}
				if len(resp.Nodes) == 0 || resp.RequestID == "" {
					t.Errorf("response = %+v", resp)
				}
				if rec.Header().Get(RequestIDHeader) != resp.RequestID {
					t.Error("request id header does not match body")
				}
				return
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandler_ParseSyntaxErrorBody(t *testing.T) {
	h := newTestHandler(t, service.DefaultConfig())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(`{"expression":"$(A"}`)))

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.Position == nil || resp.Position.Offset != 3 || resp.Position.Column != 4 {
		t.Errorf("position = %+v", resp.Position)
	}
	want := []string{"letter or digit", ".", "type reference", "identifier", ")"}
	if strings.Join(resp.Expectations, "|") != strings.Join(want, "|") {
		t.Errorf("expectations = %q, want %q", resp.Expectations, want)
	}
}

func TestHandler_RequestIDHeader(t *testing.T) {
	h := newTestHandler(t, service.DefaultConfig())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader(`{"expression":"'x'"}`))
	req.Header.Set(RequestIDHeader, "req-9")
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "req-9" {
		t.Errorf("request id = %q, want req-9", got)
	}
}

func TestHandler_RulesStatsNotFound(t *testing.T) {
	h := newTestHandler(t, service.DefaultConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	var rules struct {
		Rules []string `json:"rules"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&rules); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(rules.Rules) != 10 {
		t.Errorf("rules = %v", rules.Rules)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cache_enabled":true`) {
		t.Errorf("stats = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func dialWS(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	dialer := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
		Subprotocols:     []string{version.WebSocketProtocol},
	}
	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if got := resp.Header.Get("Sec-Websocket-Protocol"); got != version.WebSocketProtocol {
		t.Errorf("subprotocol = %q", got)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wsReply struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg interface{}) wsReply {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return reply
}

func TestWebSocket(t *testing.T) {
	conn := dialWS(t, newTestHandler(t, service.DefaultConfig()))

	t.Run("ping", func(t *testing.T) {
		reply := roundTrip(t, conn, map[string]string{"type": "ping"})
		if reply.Type != "pong" {
			t.Errorf("type = %q, want pong", reply.Type)
		}
	})

	t.Run("parse", func(t *testing.T) {
		reply := roundTrip(t, conn, map[string]interface{}{
			"type":    "parse",
			"payload": map[string]string{"expression": "$(A)=='x'", "mode": "condition", "request_id": "ws-1"},
		})
		if reply.Type != "result" {
			t.Fatalf("type = %q, want result (%s)", reply.Type, reply.Payload)
		}
		var resp ParseResponse
		if err := json.Unmarshal(reply.Payload, &resp); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(resp.Nodes) != 1 || resp.Nodes[0].Type != ast.BinaryOperator || resp.Nodes[0].Operator != "==" {
			t.Errorf("nodes = %+v", resp.Nodes)
		}
		if resp.RequestID != "ws-1" {
			t.Errorf("request id = %q, want ws-1", resp.RequestID)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		reply := roundTrip(t, conn, map[string]interface{}{
			"type":    "parse",
			"payload": map[string]string{"expression": "'open"},
		})
		if reply.Type != "error" {
			t.Fatalf("type = %q, want error", reply.Type)
		}
		var body ErrorResponse
		if err := json.Unmarshal(reply.Payload, &body); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if body.Code != "SYNTAX" || body.Position == nil || body.Position.Offset != 5 {
			t.Errorf("error = %+v", body)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		reply := roundTrip(t, conn, map[string]string{"type": "evaluate"})
		if reply.Type != "error" || !strings.Contains(string(reply.Payload), "UNKNOWN_TYPE") {
			t.Errorf("reply = %s %s", reply.Type, reply.Payload)
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		reply := roundTrip(t, conn, map[string]interface{}{"type": "parse", "payload": 5})
		if reply.Type != "error" || !strings.Contains(string(reply.Payload), "INVALID_PAYLOAD") {
			t.Errorf("reply = %s %s", reply.Type, reply.Payload)
		}
	})
}

func TestWebSocket_ReadLimit(t *testing.T) {
	conn := dialWS(t, newTestHandler(t, service.Config{MaxInputLength: 32}))

	oversized := "'" + strings.Repeat("x", int(requestLimit(32))) + "'"
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(map[string]interface{}{
		"type":    "parse",
		"payload": map[string]string{"expression": oversized},
	}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply wsReply
	err := conn.ReadJSON(&reply)
	if err == nil {
		t.Fatalf("ReadJSON() = %s %s, want the connection to be closed", reply.Type, reply.Payload)
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseMessageTooBig {
		t.Errorf("close code = %d, want %d", closeErr.Code, websocket.CloseMessageTooBig)
	}
}
