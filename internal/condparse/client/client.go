package client

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/condparse/internal/condparse/api"
	"github.com/msto63/condparse/internal/condparse/service"
	coreGrpc "github.com/msto63/condparse/pkg/core/grpc"
	"github.com/msto63/condparse/pkg/core/logging"
)

// Client talks to a remote condparse server
type Client struct {
	conn   *grpc.ClientConn
	client api.ParserClient
}

// Config holds client configuration
type Config struct {
	Address string
	Timeout time.Duration
	Logger  *logging.Logger
}

// DefaultConfig returns default client configuration
func DefaultConfig(address string) Config {
	return Config{
		Address: address,
		Timeout: 10 * time.Second,
	}
}

// New creates a client for the configured address
func New(cfg Config, opts ...grpc.DialOption) (*Client, error) {
	grpcCfg := coreGrpc.DefaultClientConfig(cfg.Address)
	if cfg.Timeout > 0 {
		grpcCfg.Timeout = cfg.Timeout
	}
	grpcCfg.Logger = cfg.Logger

	conn, err := coreGrpc.Dial(grpcCfg, opts...)
	if err != nil {
		return nil, coreGrpc.FromStatus(err)
	}

	return &Client{
		conn:   conn,
		client: api.NewParserClient(conn),
	}, nil
}

// Parse sends a parse request. Syntax errors come back as
// *parser.ParseError, other failures as structured errors.
func (c *Client) Parse(ctx context.Context, req *service.Request) (*service.Response, error) {
	in, err := api.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if req.RequestID != "" {
		ctx = coreGrpc.WithRequestID(ctx, req.RequestID)
	}

	out, err := c.client.Parse(ctx, in)
	if err != nil {
		return nil, fromStatus(err)
	}
	return api.DecodeResponse(out)
}

// Rules returns the rule names the server accepts in rule mode
func (c *Client) Rules(ctx context.Context) ([]string, error) {
	out, err := c.client.Rules(ctx, &structpb.Struct{})
	if err != nil {
		return nil, fromStatus(err)
	}
	return api.DecodeRules(out), nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			if pe, ok := api.DecodeParseError(s); ok {
				return pe
			}
		}
	}
	return coreGrpc.FromStatus(err)
}
