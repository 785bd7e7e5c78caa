package server

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/condparse/internal/condparse/api"
	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/condition/parser"
	coreGrpc "github.com/msto63/condparse/pkg/core/grpc"
	"github.com/msto63/condparse/pkg/core/health"
	"github.com/msto63/condparse/pkg/core/logging"
	"github.com/msto63/condparse/pkg/core/version"
)

// Server is the condparse gRPC server
type Server struct {
	service   *service.Service
	grpc      *coreGrpc.Server
	health    *health.Registry
	logger    *logging.Logger
	config    Config
	startTime time.Time
}

// Config holds server configuration
type Config struct {
	Host             string
	Port             int
	EnableReflection bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             9310,
		EnableReflection: true,
	}
}

// New creates a new gRPC server around an existing service
func New(cfg Config, svc *service.Service, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.New("condparse-server")
	}

	grpcCfg := coreGrpc.DefaultServerConfig()
	grpcCfg.Host = cfg.Host
	grpcCfg.Port = cfg.Port
	grpcCfg.EnableReflection = cfg.EnableReflection
	grpcCfg.MaxRecvMsgSize = coreGrpc.RecvLimitFor(svc.MaxInputLength())

	grpcServer := coreGrpc.NewServer(grpcCfg, logger)

	server := &Server{
		service:   svc,
		grpc:      grpcServer,
		health:    NewHealthRegistry(svc),
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
	}

	api.RegisterParserServer(grpcServer.GRPCServer(), server)

	return server
}

// NewHealthRegistry creates the health registry shared by all transports
func NewHealthRegistry(svc *service.Service) *health.Registry {
	registry := health.NewRegistry("condparse", version.Version)
	registry.Register(health.LatencyCheck("parser", svc.Probe, probeSlowThreshold))
	registry.Register(health.NewChecker("cache", func(context.Context) health.CheckResult {
		st := svc.Stats()
		if !st.CacheEnabled {
			return health.CheckResult{Status: health.StatusHealthy, Message: "disabled"}
		}
		return health.CheckResult{
			Status:  health.StatusHealthy,
			Message: "enabled",
			Details: map[string]interface{}{
				"size":     st.Cache.Size,
				"hit_rate": st.Cache.HitRate,
			},
		}
	}))
	return registry
}

// probeSlowThreshold marks the parser degraded when the probe takes longer
const probeSlowThreshold = 250 * time.Millisecond

// Parse implements api.ParserServer
func (s *Server) Parse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req.RequestID = coreGrpc.GetRequestID(ctx)

	resp, err := s.service.Parse(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := api.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("Encoding parse response failed", "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Rules implements api.ParserServer
func (s *Server) Rules(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := api.EncodeRules(s.service.Rules())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps syntax errors to InvalidArgument with the error position and
// expectations attached as a detail. Other errors go through the generic
// code mapping.
func toStatus(err error) error {
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		return coreGrpc.ToStatus(err)
	}

	st := status.New(codes.InvalidArgument, pe.Error())
	detail, encErr := api.EncodeParseError(pe)
	if encErr != nil {
		return st.Err()
	}
	if withDetail, detErr := st.WithDetails(protoadapt.MessageV1Of(detail)); detErr == nil {
		st = withDetail
	}
	return st.Err()
}

// Serve serves on an existing listener and blocks
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("Starting condparse server", "address", listener.Addr().String())
	return s.grpc.Serve(listener)
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting condparse server", "host", s.config.Host, "port", s.config.Port)
	return s.grpc.Start()
}

// StartAsync starts the server asynchronously
func (s *Server) StartAsync() error {
	s.logger.Info("Starting condparse server (async)", "host", s.config.Host, "port", s.config.Port)
	return s.grpc.StartAsync()
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Stopping condparse server", "uptime", time.Since(s.startTime).Round(time.Second))
	s.grpc.Stop(ctx)
}

// Err delivers the error that ended a server started with StartAsync
func (s *Server) Err() <-chan error {
	return s.grpc.Err()
}

// Address returns the listen address
func (s *Server) Address() string {
	return s.grpc.Address()
}

// GRPCServer returns the underlying gRPC server
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpc.GRPCServer()
}

// HealthRegistry returns the health check registry
func (s *Server) HealthRegistry() *health.Registry {
	return s.health
}
