package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/condition/parser"
	"github.com/msto63/condparse/pkg/core/cache"
	"github.com/msto63/condparse/pkg/core/config"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
	"github.com/msto63/condparse/pkg/core/logging"
)

// Mode selects how an expression is parsed
type Mode string

const (
	ModeExpression Mode = "expression"
	ModeCondition  Mode = "condition"
	ModeRule       Mode = "rule"
)

// Modes returns all parse modes in display order
func Modes() []Mode {
	return []Mode{ModeExpression, ModeCondition, ModeRule}
}

// ParseMode parses a mode name; the empty string selects ModeExpression
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExpression:
		return ModeExpression, nil
	case ModeCondition:
		return ModeCondition, nil
	case ModeRule:
		return ModeRule, nil
	default:
		return "", cperrors.Newf("unknown parse mode %q", s).
			WithCode(cperrors.CodeInvalidInput).
			WithDetail("mode", s)
	}
}

// Request represents a parse request
type Request struct {
	Expression string
	Mode       Mode
	Rule       string // required for ModeRule
	RequestID  string // generated when empty
}

// Response represents a successful parse
type Response struct {
	Nodes     []ast.Node
	Mode      Mode
	Rule      string
	Duration  time.Duration
	CacheHit  bool
	RequestID string
}

// Stats holds service counters
type Stats struct {
	Requests     int64       `json:"requests"`
	Failures     int64       `json:"failures"`
	CacheEnabled bool        `json:"cache_enabled"`
	Cache        cache.Stats `json:"cache"`
}

// Config holds service configuration
type Config struct {
	MaxInputLength int
	CacheDisabled  bool
	Cache          cache.Config
	Logger         *logging.Logger
}

// DefaultConfig returns default service configuration
func DefaultConfig() Config {
	return Config{
		MaxInputLength: parser.DefaultMaxInputLength,
		Cache:          cache.DefaultConfig(),
	}
}

// ConfigFrom derives the service configuration from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxInputLength: cfg.Parser.MaxInputLength,
		CacheDisabled:  cfg.Cache.Disabled,
		Cache: cache.Config{
			MaxItems:        cfg.Cache.MaxEntries,
			TTL:             cfg.Cache.TTL.Duration,
			CleanupInterval: cfg.Cache.CleanupInterval.Duration,
		},
	}
}

// Service is the condition parse service shared by all transports
type Service struct {
	parser atomic.Pointer[parser.Parser]
	cache  *cache.Cache[[]ast.Node]
	logger *logging.Logger

	requests atomic.Int64
	failures atomic.Int64
}

// NewService creates a new parse service
func NewService(cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("condparse-service")
	}

	p, err := parser.New(parser.Options{
		Logger:         logger.Logger,
		MaxInputLength: cfg.MaxInputLength,
	})
	if err != nil {
		return nil, cperrors.Wrap(err, "failed to create parser").
			WithOperation("service.NewService")
	}

	svc := &Service{logger: logger}
	svc.parser.Store(p)
	if !cfg.CacheDisabled {
		svc.cache = cache.New[[]ast.Node](cfg.Cache)
	}
	return svc, nil
}

// Parse parses the request expression in the requested mode. Successful
// results are cached by mode, rule and expression.
func (s *Service) Parse(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	s.requests.Add(1)

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	logger := s.logger.WithRequestID(requestID)

	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	if mode == ModeRule && req.Rule == "" {
		s.failures.Add(1)
		return nil, cperrors.New("rule name is required in rule mode").
			WithCode(cperrors.CodeInvalidInput).
			WithOperation("service.Parse")
	}
	if err := ctx.Err(); err != nil {
		s.failures.Add(1)
		return nil, cperrors.Wrap(err, "parse canceled").
			WithCode(cperrors.CodeCanceled).
			WithOperation("service.Parse")
	}

	rule := req.Rule
	if mode != ModeRule {
		rule = ""
	}

	compute := func() ([]ast.Node, error) {
		return s.parse(mode, rule, req.Expression)
	}

	var nodes []ast.Node
	var hit bool
	if s.cache != nil {
		nodes, hit, err = s.cache.GetOrSet(cache.Key("parse", string(mode), rule, req.Expression), compute)
	} else {
		nodes, err = compute()
	}
	if err != nil {
		s.failures.Add(1)
		logger.Debug("parse request failed", "mode", string(mode), "error", err)
		return nil, err
	}

	resp := &Response{
		Nodes:     nodes,
		Mode:      mode,
		Rule:      rule,
		Duration:  time.Since(start),
		CacheHit:  hit,
		RequestID: requestID,
	}
	logger.Debug("parse request completed",
		"mode", string(mode),
		"nodes", len(nodes),
		"cache_hit", hit,
		"duration", resp.Duration,
	)
	return resp, nil
}

func (s *Service) parse(mode Mode, rule, text string) ([]ast.Node, error) {
	var node ast.Node
	var err error
	p := s.parser.Load()
	switch mode {
	case ModeCondition:
		node, err = p.ParseCondition(text)
	case ModeRule:
		node, err = p.ParseRule(rule, text)
	default:
		return p.Parse(text)
	}
	if err != nil {
		return nil, err
	}
	return []ast.Node{node}, nil
}

// Rules returns the rule names accepted in rule mode
func (s *Service) Rules() []string {
	return parser.RuleNames()
}

// MaxInputLength returns the parser input limit in bytes
func (s *Service) MaxInputLength() int {
	return s.parser.Load().MaxInputLength()
}

// SetMaxInputLength swaps in a parser with a new input limit and drops
// cached results. In-flight requests finish with the previous parser.
func (s *Service) SetMaxInputLength(n int) error {
	if n == s.MaxInputLength() {
		return nil
	}
	p, err := parser.New(parser.Options{
		Logger:         s.logger.Logger,
		MaxInputLength: n,
	})
	if err != nil {
		return cperrors.Wrap(err, "failed to reconfigure parser").
			WithOperation("service.SetMaxInputLength")
	}
	s.parser.Store(p)
	if s.cache != nil {
		s.cache.Clear()
	}
	s.logger.Info("parser input limit changed", "max_input_length", p.MaxInputLength())
	return nil
}

// Probe parses a fixed condition, bypassing the cache. Used by health checks.
func (s *Service) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	node, err := s.parser.Load().ParseCondition(probeExpression)
	if err != nil {
		return cperrors.Wrap(err, "probe parse failed").WithCode(cperrors.CodeInternal)
	}
	if err := node.Validate(); err != nil {
		return cperrors.Wrap(err, "probe produced an invalid tree").WithCode(cperrors.CodeInternal)
	}
	return nil
}

const probeExpression = "$(Configuration)=='Debug'And'$(Platform)'!='x64'"

// Stats returns request and cache counters
func (s *Service) Stats() Stats {
	st := Stats{
		Requests:     s.requests.Load(),
		Failures:     s.failures.Load(),
		CacheEnabled: s.cache != nil,
	}
	if s.cache != nil {
		st.Cache = s.cache.Stats()
	}
	return st
}

// Close releases the cache
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}
