package grpc

import (
	"net"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	cperrors "github.com/msto63/condparse/pkg/core/errors"
	"github.com/msto63/condparse/pkg/core/logging"
)

// DefaultPort is appended to targets given without a port
const DefaultPort = 9310

// ClientConfig holds gRPC client configuration
type ClientConfig struct {
	Target            string
	Timeout           time.Duration // default per-call deadline
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	Logger            *logging.Logger
}

// DefaultClientConfig returns a default client configuration
func DefaultClientConfig(target string) ClientConfig {
	return ClientConfig{
		Target:            target,
		Timeout:           10 * time.Second,
		MaxRecvMsgSize:    4 * 1024 * 1024, // 4MB
		MaxSendMsgSize:    1 * 1024 * 1024, // 1MB
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// NormalizeTarget completes a bare host or ":port" into a dialable
// target. Targets with a resolver scheme are returned unchanged.
func NormalizeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", cperrors.New("empty gRPC target").WithCode(cperrors.CodeInvalidInput)
	}
	if strings.Contains(target, "://") || strings.HasPrefix(target, "unix:") {
		return target, nil
	}

	host, port, err := net.SplitHostPort(target)
	if err != nil {
		// no port given
		return net.JoinHostPort(strings.Trim(target, "[]"), strconv.Itoa(DefaultPort)), nil
	}
	if host == "" {
		host = "localhost"
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", cperrors.Newf("invalid port in gRPC target %q", target).
			WithCode(cperrors.CodeInvalidInput).
			WithDetail("target", target)
	}
	return net.JoinHostPort(host, port), nil
}

// Dial creates a client connection with the standard interceptor chain.
// The connection is established lazily on the first call.
func Dial(cfg ClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	target, err := NormalizeTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("grpc-client")
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveInterval,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(
			ClientTimeoutInterceptor(cfg.Timeout),
			ClientRequestIDInterceptor(),
			ClientLoggingInterceptor(logger),
		),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, cperrors.Wrap(err, "failed to create gRPC client").
			WithCode(cperrors.CodeUnavailable).
			WithDetail("target", target)
	}
	return conn, nil
}
