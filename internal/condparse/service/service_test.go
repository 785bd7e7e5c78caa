package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/condition/parser"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
	cplog "github.com/msto63/condparse/pkg/core/log"
	"github.com/msto63/condparse/pkg/core/logging"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logging.Wrap(cplog.Discard())
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeExpression, false},
		{"expression", ModeExpression, false},
		{"Condition", ModeCondition, false},
		{" rule ", ModeRule, false},
		{"tree", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestService_Parse(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	tests := []struct {
		name      string
		req       Request
		wantNodes int
		wantType  ast.NodeType
	}{
		{"expression", Request{Expression: "'a' $(B)"}, 3, ast.QuotedString},
		{"condition", Request{Expression: "'a'=='b'", Mode: ModeCondition}, 1, ast.BinaryOperator},
		{"rule", Request{Expression: "[System.IO]::", Mode: ModeRule, Rule: "type-ref"}, 1, ast.TypeRef},
		{"empty expression", Request{Expression: ""}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Parse(context.Background(), &tt.req)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(resp.Nodes) != tt.wantNodes {
				t.Fatalf("Parse() nodes = %d, want %d", len(resp.Nodes), tt.wantNodes)
			}
			if tt.wantNodes > 0 && resp.Nodes[0].Type != tt.wantType {
				t.Errorf("first node = %s, want %s", resp.Nodes[0].Type, tt.wantType)
			}
			if resp.RequestID == "" {
				t.Error("expected a generated request id")
			}
		})
	}
}

func TestService_ParseErrors(t *testing.T) {
	svc := newTestService(t, Config{MaxInputLength: 16})

	tests := []struct {
		name string
		req  Request
		code cperrors.Code
	}{
		{"syntax", Request{Expression: "$(A"}, cperrors.CodeSyntax},
		{"too large", Request{Expression: strings.Repeat("'a'", 10)}, cperrors.CodeInputTooLarge},
		{"unknown rule", Request{Expression: "A", Mode: ModeRule, Rule: "item"}, cperrors.CodeUnknownRule},
		{"missing rule", Request{Expression: "A", Mode: ModeRule}, cperrors.CodeInvalidInput},
		{"bad mode", Request{Expression: "A", Mode: "tree"}, cperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Parse(context.Background(), &tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := cperrors.CodeOf(err); got != tt.code {
				t.Errorf("CodeOf() = %s, want %s", got, tt.code)
			}
		})
	}

	if got := svc.Stats().Failures; got != int64(len(tests)) {
		t.Errorf("Stats().Failures = %d, want %d", got, len(tests))
	}
}

func TestService_SyntaxErrorKeepsParseError(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	_, err := svc.Parse(context.Background(), &Request{Expression: "$(A"})
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %T, want *parser.ParseError", err)
	}
	if pe.Offset() != 3 {
		t.Errorf("Offset() = %d, want 3", pe.Offset())
	}
}

func TestService_Canceled(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Parse(ctx, &Request{Expression: "'a'"})
	if !cperrors.HasCode(err, cperrors.CodeCanceled) {
		t.Errorf("error = %v, want CANCELED", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled in the chain")
	}
}

func TestService_Cache(t *testing.T) {
	svc := newTestService(t, DefaultConfig())
	req := Request{Expression: "'$(A)'", RequestID: "req-1"}

	first, err := svc.Parse(context.Background(), &req)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first parse should miss the cache")
	}
	if first.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", first.RequestID)
	}

	second, err := svc.Parse(context.Background(), &req)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second parse should hit the cache")
	}

	// Same text in another mode is a separate entry
	third, err := svc.Parse(context.Background(), &Request{Expression: "'$(A)'", Mode: ModeRule, Rule: "quoted-string"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if third.CacheHit {
		t.Error("rule mode should not share the expression cache entry")
	}

	stats := svc.Stats()
	if !stats.CacheEnabled || stats.Cache.Hits != 1 || stats.Cache.Size != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.Requests != 3 {
		t.Errorf("Stats().Requests = %d, want 3", stats.Requests)
	}
}

func TestService_CacheDisabled(t *testing.T) {
	svc := newTestService(t, Config{CacheDisabled: true})

	for i := 0; i < 2; i++ {
		resp, err := svc.Parse(context.Background(), &Request{Expression: "'x'"})
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if resp.CacheHit {
			t.Error("cache hit with cache disabled")
		}
	}
	if svc.Stats().CacheEnabled {
		t.Error("Stats().CacheEnabled = true")
	}
}

func TestService_Probe(t *testing.T) {
	svc := newTestService(t, DefaultConfig())
	if err := svc.Probe(context.Background()); err != nil {
		t.Errorf("Probe() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Probe(ctx); err == nil {
		t.Error("Probe() with canceled context should fail")
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := NewService(Config{MaxInputLength: -1, Logger: logging.Wrap(cplog.Discard())})
	if !cperrors.HasCode(err, cperrors.CodeConfig) {
		t.Errorf("NewService() error = %v, want CONFIG", err)
	}
}

func TestService_SetMaxInputLength(t *testing.T) {
	svc := newTestService(t, DefaultConfig())
	ctx := context.Background()
	expr := "'abcdefghijklmnop'"

	if _, err := svc.Parse(ctx, &Request{Expression: expr}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if svc.Stats().Cache.Size != 1 {
		t.Fatalf("cache size = %d, want 1", svc.Stats().Cache.Size)
	}

	if err := svc.SetMaxInputLength(8); err != nil {
		t.Fatalf("SetMaxInputLength() error = %v", err)
	}
	if got := svc.MaxInputLength(); got != 8 {
		t.Errorf("MaxInputLength() = %d, want 8", got)
	}
	if svc.Stats().Cache.Size != 0 {
		t.Errorf("cache not cleared after reconfigure")
	}

	_, err := svc.Parse(ctx, &Request{Expression: expr})
	if !cperrors.HasCode(err, cperrors.CodeInputTooLarge) {
		t.Errorf("Parse() error = %v, want INPUT_TOO_LARGE", err)
	}

	if err := svc.SetMaxInputLength(-1); !cperrors.HasCode(err, cperrors.CodeConfig) {
		t.Errorf("SetMaxInputLength(-1) error = %v, want CONFIG", err)
	}
	if got := svc.MaxInputLength(); got != 8 {
		t.Errorf("limit changed by a failed reconfigure: %d", got)
	}
}
