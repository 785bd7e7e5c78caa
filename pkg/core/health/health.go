package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Status represents the health status of a service
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// DefaultCheckTimeout bounds a single check when the caller's context has
// no earlier deadline
const DefaultCheckTimeout = 2 * time.Second

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Duration  time.Duration          `json:"duration_ns"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Checker is an interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func (c *namedCheck) Name() string                          { return c.name }
func (c *namedCheck) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

// ErrorCheck is healthy when fn returns nil
func ErrorCheck(name string, fn func(ctx context.Context) error) Checker {
	return LatencyCheck(name, fn, 0)
}

// LatencyCheck is unhealthy when fn fails and degraded when it succeeds but
// takes longer than slow. A slow of zero disables the latency threshold.
func LatencyCheck(name string, fn func(ctx context.Context) error, slow time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		start := time.Now()
		err := fn(ctx)
		took := time.Since(start)

		switch {
		case err != nil:
			return CheckResult{Name: name, Status: StatusUnhealthy, Message: err.Error()}
		case slow > 0 && took > slow:
			return CheckResult{
				Name:    name,
				Status:  StatusDegraded,
				Message: fmt.Sprintf("slow: %v > %v", took.Round(time.Microsecond), slow),
				Details: map[string]interface{}{"threshold_ns": slow.Nanoseconds()},
			}
		default:
			return CheckResult{Name: name, Status: StatusHealthy, Message: "ok"}
		}
	})
}

// Registry runs a set of named checks
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	service  string
	version  string
	timeout  time.Duration
	startAt  time.Time
}

// NewRegistry creates a new health check registry
func NewRegistry(service, version string) *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		service:  service,
		version:  version,
		timeout:  DefaultCheckTimeout,
		startAt:  time.Now(),
	}
}

// SetCheckTimeout changes the per-check timeout
func (r *Registry) SetCheckTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
}

// Register adds a checker, replacing any checker with the same name
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// Names returns the registered check names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs all checks concurrently. A check that does not finish within
// the per-check timeout is reported as unknown, which degrades the service.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	timeout := r.timeout
	r.mu.RUnlock()

	report := &Report{
		Service:   r.service,
		Version:   r.version,
		Uptime:    time.Since(r.startAt),
		Timestamp: time.Now(),
		Checks:    make([]CheckResult, len(checkers)),
	}

	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			report.Checks[i] = runCheck(ctx, c, timeout)
		}(i, c)
	}
	wg.Wait()

	sort.Slice(report.Checks, func(i, j int) bool {
		return report.Checks[i].Name < report.Checks[j].Name
	})
	report.Status = overall(report.Checks)
	return report
}

func runCheck(ctx context.Context, c Checker, timeout time.Duration) CheckResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() { done <- c.Check(ctx) }()

	var result CheckResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result = CheckResult{Status: StatusUnknown, Message: "check timed out: " + ctx.Err().Error()}
	}
	result.Name = c.Name()
	result.Duration = time.Since(start)
	result.Timestamp = time.Now()
	return result
}

func overall(checks []CheckResult) Status {
	status := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			status = StatusDegraded
		}
	}
	return status
}

// Report represents the overall health report
type Report struct {
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Status    Status        `json:"status"`
	Uptime    time.Duration `json:"uptime_ns"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// Healthy reports whether every check passed
func (r *Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Serving reports whether the service can take requests; degraded counts
func (r *Report) Serving() bool {
	return r.Status != StatusUnhealthy
}

// Failing returns the names of checks that did not pass
func (r *Report) Failing() []string {
	var names []string
	for _, c := range r.Checks {
		if c.Status != StatusHealthy {
			names = append(names, c.Name)
		}
	}
	return names
}

// String returns a one-line summary
func (r *Report) String() string {
	s := fmt.Sprintf("%s %s: %s, uptime %v, %d checks",
		r.Service, r.Version, r.Status, r.Uptime.Round(time.Second), len(r.Checks))
	if failing := r.Failing(); len(failing) > 0 {
		s += " (failing: " + strings.Join(failing, ", ") + ")"
	}
	return s
}
