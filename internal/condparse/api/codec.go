package api

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/condition/ast"
	"github.com/msto63/condparse/pkg/condition/parser"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
)

// EncodeRequest converts a service request into its wire form
func EncodeRequest(req *service.Request) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"expression": req.Expression,
		"mode":       string(req.Mode),
		"rule":       req.Rule,
	})
}

// DecodeRequest converts a wire request into a service request
func DecodeRequest(s *structpb.Struct) (*service.Request, error) {
	fields := s.GetFields()
	req := &service.Request{}
	for name, dst := range map[string]*string{"expression": &req.Expression, "rule": &req.Rule} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, cperrors.Newf("field %q must be a string", name).
				WithCode(cperrors.CodeInvalidInput).
				WithDetail("field", name)
		}
		*dst = sv.StringValue
	}
	if v, ok := fields["mode"]; ok {
		mode, err := service.ParseMode(v.GetStringValue())
		if err != nil {
			return nil, err
		}
		req.Mode = mode
	}
	return req, nil
}

// EncodeResponse converts a service response into its wire form
func EncodeResponse(resp *service.Response) (*structpb.Struct, error) {
	nodes, err := encodeNodes(resp.Nodes)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]interface{}{
		"nodes":       nodes,
		"mode":        string(resp.Mode),
		"rule":        resp.Rule,
		"request_id":  resp.RequestID,
		"cache_hit":   resp.CacheHit,
		"duration_ms": float64(resp.Duration.Microseconds()) / 1000,
	})
}

// DecodeResponse converts a wire response into a service response
func DecodeResponse(s *structpb.Struct) (*service.Response, error) {
	fields := s.GetFields()
	nodes, err := decodeNodes(fields["nodes"])
	if err != nil {
		return nil, err
	}
	return &service.Response{
		Nodes:     nodes,
		Mode:      service.Mode(fields["mode"].GetStringValue()),
		Rule:      fields["rule"].GetStringValue(),
		RequestID: fields["request_id"].GetStringValue(),
		CacheHit:  fields["cache_hit"].GetBoolValue(),
		Duration:  time.Duration(fields["duration_ms"].GetNumberValue() * float64(time.Millisecond)),
	}, nil
}

// EncodeRules converts rule names into a Rules response
func EncodeRules(names []string) (*structpb.Struct, error) {
	list := make([]interface{}, len(names))
	for i, n := range names {
		list[i] = n
	}
	return structpb.NewStruct(map[string]interface{}{"rules": list})
}

// DecodeRules extracts rule names from a Rules response
func DecodeRules(s *structpb.Struct) []string {
	values := s.GetFields()["rules"].GetListValue().GetValues()
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.GetStringValue())
	}
	return names
}

// EncodeParseError converts a syntax error into a status detail
func EncodeParseError(pe *parser.ParseError) (*structpb.Struct, error) {
	exps := make([]interface{}, len(pe.Expectations))
	for i, e := range pe.Expectations {
		exps[i] = e
	}
	return structpb.NewStruct(map[string]interface{}{
		"message":      pe.Message,
		"expectations": exps,
		"line":         pe.Position.Line,
		"column":       pe.Position.Column,
		"offset":       pe.Position.Offset,
		"source":       pe.Source,
	})
}

// DecodeParseError rebuilds a syntax error from a status detail. It
// reports false when the detail is not a parse error.
func DecodeParseError(s *structpb.Struct) (*parser.ParseError, bool) {
	fields := s.GetFields()
	msg, ok := fields["message"]
	if !ok {
		return nil, false
	}
	exps := []string{}
	for _, v := range fields["expectations"].GetListValue().GetValues() {
		exps = append(exps, v.GetStringValue())
	}
	return &parser.ParseError{
		Message:      msg.GetStringValue(),
		Expectations: exps,
		Position: ast.Position{
			Line:   int(fields["line"].GetNumberValue()),
			Column: int(fields["column"].GetNumberValue()),
			Offset: int(fields["offset"].GetNumberValue()),
		},
		Source: fields["source"].GetStringValue(),
	}, true
}

func encodeNodes(nodes []ast.Node) ([]interface{}, error) {
	data, err := json.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	var list []interface{}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []interface{}{}
	}
	return list, nil
}

func decodeNodes(v *structpb.Value) ([]ast.Node, error) {
	nodes := []ast.Node{}
	if v == nil {
		return nodes, nil
	}
	data, err := json.Marshal(v.AsInterface())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("invalid nodes: %w", err)
	}
	normalize(nodes)
	return nodes, nil
}

// normalize restores the empty child lists that JSON omits
func normalize(nodes []ast.Node) {
	for i := range nodes {
		if nodes[i].Children == nil && (nodes[i].Type.IsComposite() || nodes[i].Operator != "") {
			nodes[i].Children = []ast.Node{}
		}
		normalize(nodes[i].Children)
	}
}
