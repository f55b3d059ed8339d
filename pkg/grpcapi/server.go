// Package grpcapi implements the gRPC API server for fgtconf.
package grpcapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/configstore"
	"github.com/psaab/fgtconf/pkg/diff"
	"github.com/psaab/fgtconf/pkg/export"
	"github.com/psaab/fgtconf/pkg/filter"
	"github.com/psaab/fgtconf/pkg/metrics"
	"github.com/psaab/fgtconf/pkg/redact"
)

// Config configures the gRPC server.
type Config struct {
	Store   *configstore.Store // backs Current; may be nil
	Metrics *metrics.Parser    // records request parses; may be nil
	Redact  redact.Options     // used by Render when redact is requested
}

// Server implements the ConfigService gRPC service.
type Server struct {
	store     *configstore.Store
	metrics   *metrics.Parser
	redact    redact.Options
	startTime time.Time
	addr      string
}

// NewServer creates a new gRPC server.
func NewServer(addr string, cfg Config) *Server {
	return &Server{
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		redact:    cfg.Redact,
		startTime: time.Now(),
		addr:      addr,
	}
}

// Run starts the gRPC server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gRPC listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.UnaryInterceptor(logRequests))
	RegisterConfigServiceServer(srv, s)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.GracefulStop()
	slog.Info("gRPC server stopped", "uptime", time.Since(s.startTime).Round(time.Second))
	return nil
}

func logRequests(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Debug("gRPC request", "method", info.FullMethod,
		"duration", time.Since(start), "code", status.Code(err))
	return resp, err
}

func (s *Server) parse(text string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.metrics != nil {
		cfg, err = s.metrics.Parse(text)
	} else {
		cfg, err = config.Parse(text)
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return cfg, nil
}

// --- Stateless RPCs ---

func (s *Server) Parse(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	cfg, err := s.parse(req.GetValue())
	if err != nil {
		return nil, err
	}
	return export.Struct(cfg), nil
}

func (s *Server) Render(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	cfg, err := s.parse(fields["config"].GetStringValue())
	if err != nil {
		return nil, err
	}

	var filters []config.Filter
	if src := fields["filter"].GetStringValue(); src != "" {
		f, err := filter.Compile(src)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "filter: %v", err)
		}
		filters = append(filters, f.Select())
	}
	var exclude []string
	for _, v := range fields["exclude"].GetListValue().GetValues() {
		exclude = append(exclude, v.GetStringValue())
	}
	ex, err := filter.Exclude(exclude...)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "exclude: %v", err)
	}
	filters = append(filters, ex)

	if fields["redact"].GetBoolValue() {
		redact.New(s.redact).Config(cfg)
	}

	var b strings.Builder
	if err := cfg.Write(&b, fields["comments"].GetBoolValue(), filter.All(filters...), nil); err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return wrapperspb.String(b.String()), nil
}

func (s *Server) Diff(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	from, err := s.parse(fields["from"].GetStringValue())
	if err != nil {
		return nil, err
	}
	to, err := s.parse(fields["to"].GetStringValue())
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, c := range diff.Tree(from, to) {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return wrapperspb.String(b.String()), nil
}

// --- Store RPCs ---

func (s *Server) Current(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if s.store == nil {
		return nil, status.Errorf(codes.FailedPrecondition, "no configuration store")
	}
	var b strings.Builder
	if err := s.store.Active().Write(&b, true, nil, nil); err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return wrapperspb.String(b.String()), nil
}
