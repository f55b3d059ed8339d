package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/psaab/fgtconf/pkg/grpcapi"
)

var remoteFlags struct {
	addr    string
	timeout time.Duration
	filter  string
	exclude []string
	redact  bool
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Query a running fgtconfd over gRPC",
}

var remoteCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the daemon's active configuration",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *grpcapi.Client, cmd *cobra.Command, _ []string) error {
		text, err := c.Current(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}),
}

var remoteRenderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Have the daemon filter and re-write FILE",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *grpcapi.Client, cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, args[0])
		if err != nil {
			return err
		}
		out, err := c.Render(ctx, grpcapi.RenderRequest{
			Config:   text,
			Filter:   remoteFlags.filter,
			Exclude:  remoteFlags.exclude,
			Redact:   remoteFlags.redact,
			Comments: opts.Comments,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}),
}

var remoteDiffCmd = &cobra.Command{
	Use:   "diff FILE",
	Short: "Compare the daemon's active configuration with FILE",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *grpcapi.Client, cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, args[0])
		if err != nil {
			return err
		}
		current, err := c.Current(ctx)
		if err != nil {
			return err
		}
		out, err := c.Diff(ctx, current, text)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}),
}

func init() {
	pf := remoteCmd.PersistentFlags()
	pf.StringVar(&remoteFlags.addr, "addr", getEnvOrDefault("FGTCONF_ADDR", "127.0.0.1:50051"), "daemon gRPC address")
	pf.DurationVar(&remoteFlags.timeout, "timeout", 10*time.Second, "request timeout")

	f := remoteRenderCmd.Flags()
	f.StringVar(&remoteFlags.filter, "filter", "", "keep items matching this expression")
	f.StringArrayVar(&remoteFlags.exclude, "exclude", nil, "drop items matching this expression (repeatable)")
	f.BoolVar(&remoteFlags.redact, "redact", false, "hide secrets")

	remoteCmd.AddCommand(remoteCurrentCmd, remoteRenderCmd, remoteDiffCmd)
	rootCmd.AddCommand(remoteCmd)
}

// dial is replaced in tests.
var dial = func(addr string) (grpc.ClientConnInterface, func() error, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

func withClient(fn func(context.Context, *grpcapi.Client, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		conn, closeFn, err := dial(remoteFlags.addr)
		if err != nil {
			return fmt.Errorf("connect %s: %w", remoteFlags.addr, err)
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), remoteFlags.timeout)
		defer cancel()
		return fn(ctx, grpcapi.NewClient(conn), cmd, args)
	}
}

func readText(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
