package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a ConfigService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RenderRequest holds the Render arguments.
type RenderRequest struct {
	Config   string
	Filter   string
	Exclude  []string
	Redact   bool
	Comments bool
}

func (r RenderRequest) proto() (*structpb.Struct, error) {
	exclude := make([]any, len(r.Exclude))
	for i, e := range r.Exclude {
		exclude[i] = e
	}
	return structpb.NewStruct(map[string]any{
		"config":   r.Config,
		"filter":   r.Filter,
		"exclude":  exclude,
		"redact":   r.Redact,
		"comments": r.Comments,
	})
}

// Parse returns the tree of text.
func (c *Client) Parse(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodParse, wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Render returns the configuration re-written by the server.
func (c *Client) Render(ctx context.Context, req RenderRequest, opts ...grpc.CallOption) (string, error) {
	in, err := req.proto()
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodRender, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Diff returns the changes from one configuration to another, one per line.
func (c *Client) Diff(ctx context.Context, from, to string, opts ...grpc.CallOption) (string, error) {
	in, err := structpb.NewStruct(map[string]any{"from": from, "to": to})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodDiff, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Current returns the daemon's active configuration.
func (c *Client) Current(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodCurrent, &emptypb.Empty{}, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
