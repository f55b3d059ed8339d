// Package daemon implements the fgtconfd daemon lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/psaab/fgtconf/pkg/api"
	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/configstore"
	"github.com/psaab/fgtconf/pkg/grpcapi"
	"github.com/psaab/fgtconf/pkg/logging"
	"github.com/psaab/fgtconf/pkg/metrics"
	"github.com/psaab/fgtconf/pkg/redact"
)

// DefaultConfigFile is served when Options.ConfigFile is empty.
const DefaultConfigFile = "/etc/fgtconf/fortigate.conf"

// Options configures the daemon.
type Options struct {
	ConfigFile string
	History    int    // commits kept for rollback; 0 = default
	APIAddr    string // HTTP API listen address (empty = disabled)
	HTTPSAddr  string // HTTPS listen address with a self-signed certificate
	CertDir    string
	GRPCAddr   string // gRPC API listen address (empty = disabled)
	Watch      bool   // reload the file when it changes on disk
	Auth       *api.AuthConfig
	Logs       *logging.Buffer
	Redact     redact.Options
	// RedactDefault redacts API output unless the client opts out.
	RedactDefault bool
}

// Daemon serves one configuration file over HTTP and gRPC.
type Daemon struct {
	opts   Options
	store  *configstore.Store
	parser *metrics.Parser
}

// New creates a new Daemon.
func New(opts Options) *Daemon {
	if opts.ConfigFile == "" {
		opts.ConfigFile = DefaultConfigFile
	}

	return &Daemon{
		opts:   opts,
		store:  configstore.New(opts.ConfigFile, opts.History),
		parser: metrics.NewParser(),
	}
}

// Store returns the daemon's configuration store.
func (d *Daemon) Store() *configstore.Store { return d.store }

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("starting fgtconfd",
		"config", d.opts.ConfigFile,
		"pid", os.Getpid())

	if err := d.store.Load(); err != nil {
		return err
	}
	slog.Info("configuration loaded", "file", d.opts.ConfigFile,
		"nodes", config.Count(d.store.Active().Root).Total())

	// Handle signals for clean shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// WaitGroup for coordinated shutdown of background goroutines
	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	if d.opts.Watch {
		start("watch", func(ctx context.Context) error {
			return d.store.Watch(ctx, nil)
		})
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.reloadOnHangup(ctx)
	}()

	if d.opts.GRPCAddr != "" {
		srv := grpcapi.NewServer(d.opts.GRPCAddr, grpcapi.Config{
			Store:   d.store,
			Metrics: d.parser,
			Redact:  d.opts.Redact,
		})
		start("gRPC", srv.Run)
	}

	if d.opts.APIAddr != "" {
		srv := api.NewServer(api.Config{
			Addr:          d.opts.APIAddr,
			HTTPSAddr:     d.opts.HTTPSAddr,
			TLS:           d.opts.HTTPSAddr != "",
			CertDir:       d.opts.CertDir,
			Auth:          d.opts.Auth,
			Store:         d.store,
			Metrics:       d.parser,
			Logs:          d.opts.Logs,
			Redact:        d.opts.Redact,
			RedactDefault: d.opts.RedactDefault,
		})
		start("HTTP API", srv.Run)
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		slog.Info("signal received, shutting down")
	}

	// Cancel context to stop background goroutines, then wait for them.
	stop()
	wg.Wait()

	slog.Info("shutdown complete")
	return runErr
}

// reloadOnHangup re-reads the configuration file on SIGHUP until ctx is
// cancelled.
func (d *Daemon) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := d.Reload(); err != nil {
				slog.Error("reload failed, keeping previous config", "err", err)
			}
		}
	}
}

// Reload parses the configuration file and makes it active when it differs
// from the current one.
func (d *Daemon) Reload() error {
	cfg, err := d.parser.ParseFile(d.opts.ConfigFile)
	if err != nil {
		return err
	}
	if cfg.Equal(d.store.Active()) {
		slog.Debug("reload: configuration unchanged")
		return nil
	}
	d.store.Replace(cfg, "reloaded on SIGHUP")
	slog.Info("configuration reloaded", "file", d.opts.ConfigFile)
	return nil
}
