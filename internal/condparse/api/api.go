// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     api
// Description: gRPC service description and structpb wire codec
// Created:     2026-10-18
// License:     MIT
// ============================================================================

// Package api describes the condparse.v1.ConditionParser gRPC service.
// Messages are google.protobuf.Struct values, so no generated code is
// needed on either side.
//
// Parse request fields: expression (string), mode (string), rule (string).
// Parse response fields: nodes (list), mode, rule, request_id (strings),
// cache_hit (bool), duration_ms (number).
// Rules response fields: rules (list of strings).
//
// Syntax errors are returned as InvalidArgument with a Struct detail
// carrying message, expectations, line, column and offset.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/condparse/pkg/core/version"
)

// Full method names
const (
	ParseMethod = "/" + version.GRPCService + "/Parse"
	RulesMethod = "/" + version.GRPCService + "/Rules"
)

// ParserServer is the server API for the ConditionParser service
type ParserServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rules(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterParserServer registers srv on the gRPC server
func RegisterParserServer(s grpc.ServiceRegistrar, srv ParserServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for the ConditionParser service
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: version.GRPCService,
	HandlerType: (*ParserServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Parse",
			Handler:    parseHandler,
		},
		{
			MethodName: "Rules",
			Handler:    rulesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "condparse/v1/parser.proto",
}

func parseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParserServer).Parse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ParseMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ParserServer).Parse(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func rulesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParserServer).Rules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RulesMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ParserServer).Rules(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ParserClient is the client API for the ConditionParser service
type ParserClient interface {
	Parse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Rules(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type parserClient struct {
	cc grpc.ClientConnInterface
}

// NewParserClient creates a client stub on an existing connection
func NewParserClient(cc grpc.ClientConnInterface) ParserClient {
	return &parserClient{cc: cc}
}

func (c *parserClient) Parse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ParseMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *parserClient) Rules(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RulesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
