package health

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewChecker(t *testing.T) {
	checker := NewChecker("test-checker", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "test passed"}
	})

	if checker.Name() != "test-checker" {
		t.Errorf("Name() = %v, want test-checker", checker.Name())
	}
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy || result.Message != "test passed" {
		t.Errorf("Check() = %+v", result)
	}
}

func TestLatencyCheck(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(context.Context) error
		slow   time.Duration
		want   Status
		substr string
	}{
		{"ok", func(context.Context) error { return nil }, 0, StatusHealthy, "ok"},
		{"error", func(context.Context) error { return errors.New("parse probe failed") }, 0, StatusUnhealthy, "parse probe failed"},
		{
			name: "slow",
			fn: func(context.Context) error {
				time.Sleep(20 * time.Millisecond)
				return nil
			},
			slow:   time.Millisecond,
			want:   StatusDegraded,
			substr: "slow",
		},
		{"fast enough", func(context.Context) error { return nil }, time.Second, StatusHealthy, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := LatencyCheck("parser", tt.fn, tt.slow).Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v", r.Status, tt.want)
			}
			if !strings.Contains(r.Message, tt.substr) {
				t.Errorf("Message = %q, want it to contain %q", r.Message, tt.substr)
			}
		})
	}
}

func TestErrorCheck(t *testing.T) {
	ok := ErrorCheck("probe", func(ctx context.Context) error { return nil })
	if r := ok.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}

	bad := ErrorCheck("probe", func(ctx context.Context) error { return errors.New("boom") })
	if r := bad.Check(context.Background()); r.Status != StatusUnhealthy || r.Message != "boom" {
		t.Errorf("got %+v", r)
	}
}

func TestRegistry_OverallStatus(t *testing.T) {
	healthy := func(context.Context) CheckResult { return CheckResult{Status: StatusHealthy} }
	tests := []struct {
		name    string
		results []Status
		want    Status
		serving bool
	}{
		{"empty", nil, StatusHealthy, true},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy, true},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded, true},
		{"unknown degrades", []Status{StatusUnknown}, StatusDegraded, true},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry("condparse", "1.0.0")
			registry.Register(NewChecker("base", healthy))
			for i, s := range tt.results {
				s := s
				registry.Register(NewChecker(string(rune('a'+i)), func(context.Context) CheckResult {
					return CheckResult{Status: s}
				}))
			}

			report := registry.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if report.Serving() != tt.serving {
				t.Errorf("Serving() = %v, want %v", report.Serving(), tt.serving)
			}
			if report.Service != "condparse" || report.Version != "1.0.0" {
				t.Errorf("report identity = %s/%s", report.Service, report.Version)
			}
		})
	}
}

func TestRegistry_SortedChecksAndNames(t *testing.T) {
	registry := NewRegistry("condparse", "1.0.0")
	for _, name := range []string{"parser", "cache", "grpc"} {
		registry.Register(ErrorCheck(name, func(context.Context) error { return nil }))
	}
	registry.Register(ErrorCheck("parser", func(context.Context) error { return errors.New("replaced") }))

	want := []string{"cache", "grpc", "parser"}
	report := registry.Check(context.Background())
	if len(report.Checks) != len(want) {
		t.Fatalf("Checks = %d, want %d", len(report.Checks), len(want))
	}
	for i, name := range want {
		if report.Checks[i].Name != name {
			t.Errorf("Checks[%d] = %s, want %s", i, report.Checks[i].Name, name)
		}
		if registry.Names()[i] != name {
			t.Errorf("Names()[%d] = %s, want %s", i, registry.Names()[i], name)
		}
	}
	if got := report.Failing(); len(got) != 1 || got[0] != "parser" {
		t.Errorf("Failing() = %v, want [parser]", got)
	}
	if !strings.Contains(report.String(), "failing: parser") {
		t.Errorf("String() = %q", report.String())
	}
}

func TestRegistry_CheckTimeout(t *testing.T) {
	registry := NewRegistry("condparse", "1.0.0")
	registry.SetCheckTimeout(20 * time.Millisecond)
	registry.Register(NewChecker("stuck", func(ctx context.Context) CheckResult {
		time.Sleep(time.Second)
		return CheckResult{Status: StatusHealthy}
	}))

	start := time.Now()
	report := registry.Check(context.Background())
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Errorf("Check() took %v, want it bounded by the check timeout", took)
	}
	if report.Checks[0].Status != StatusUnknown {
		t.Errorf("Status = %v, want unknown", report.Checks[0].Status)
	}
	if report.Checks[0].Name != "stuck" {
		t.Errorf("Name = %q, want stuck", report.Checks[0].Name)
	}
	if report.Status != StatusDegraded {
		t.Errorf("overall = %v, want degraded", report.Status)
	}
}

func TestRegistry_ConcurrentChecks(t *testing.T) {
	registry := NewRegistry("condparse", "1.0.0")
	var counter int32

	for i := 0; i < 5; i++ {
		registry.Register(NewChecker("check"+string(rune('A'+i)), func(ctx context.Context) CheckResult {
			atomic.AddInt32(&counter, 1)
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		}))
	}

	start := time.Now()
	report := registry.Check(context.Background())
	duration := time.Since(start)

	if atomic.LoadInt32(&counter) != 5 {
		t.Errorf("Counter = %v, want 5", counter)
	}
	if duration > 100*time.Millisecond {
		t.Errorf("Duration = %v, expected concurrent execution", duration)
	}
	for _, c := range report.Checks {
		if c.Duration <= 0 || c.Timestamp.IsZero() {
			t.Errorf("%s: missing timing %+v", c.Name, c)
		}
	}
}
