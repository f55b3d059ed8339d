// fgtconfd serves a FortiGate configuration file over HTTP and gRPC.
//
// It keeps the parsed configuration in memory, reloads it on SIGHUP or
// when the file changes, and exposes Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/psaab/fgtconf/pkg/api"
	"github.com/psaab/fgtconf/pkg/daemon"
	"github.com/psaab/fgtconf/pkg/logging"
	"github.com/psaab/fgtconf/pkg/redact"
	"github.com/psaab/fgtconf/pkg/settings"
)

// repeated collects a flag given several times.
type repeated []string

func (r *repeated) String() string { return fmt.Sprint(*r) }

func (r *repeated) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	configFile := flag.String("config", daemon.DefaultConfigFile, "configuration file path")
	optionsFile := flag.String("options", "", "options file (YAML or HCL)")
	apiAddr := flag.String("api-addr", "127.0.0.1:8080", "HTTP API listen address (empty to disable)")
	httpsAddr := flag.String("https-addr", "", "HTTPS API listen address with a self-signed certificate")
	certDir := flag.String("cert-dir", api.DefaultCertDir, "directory for the generated certificate")
	grpcAddr := flag.String("grpc-addr", "127.0.0.1:50051", "gRPC API listen address (empty to disable)")
	watch := flag.Bool("watch", true, "reload the configuration when the file changes")
	debug := flag.Bool("debug", false, "enable debug logging")
	var users, keys repeated
	flag.Var(&users, "user", "API user as user:password (repeatable)")
	flag.Var(&keys, "api-key", "API key (repeatable)")
	flag.Parse()

	logs := logging.NewBuffer(logging.DefaultBufferSize)
	logging.Setup(os.Stderr, *debug, logs)

	opts := settings.Default()
	if *optionsFile != "" {
		var err error
		if opts, err = settings.Load(*optionsFile); err != nil {
			fmt.Fprintf(os.Stderr, "fgtconfd: %v\n", err)
			os.Exit(1)
		}
	}

	auth, err := api.ParseAuth(users, keys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fgtconfd: %v\n", err)
		os.Exit(1)
	}

	d := daemon.New(daemon.Options{
		ConfigFile:    *configFile,
		History:       opts.History,
		APIAddr:       *apiAddr,
		HTTPSAddr:     *httpsAddr,
		CertDir:       *certDir,
		GRPCAddr:      *grpcAddr,
		Watch:         *watch,
		Auth:          auth,
		Logs:          logs,
		Redact:        redactOptions(opts),
		RedactDefault: opts.Redact != nil && opts.Redact.Enabled,
	})

	if err := d.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fgtconfd: %v\n", err)
		os.Exit(1)
	}
}

func redactOptions(o *settings.Options) redact.Options {
	if o.Redact == nil {
		return redact.Options{}
	}
	return redact.Options{
		Keys:        o.Redact.Keys,
		Marker:      o.Redact.Marker,
		Replacement: o.Redact.Replacement,
	}
}
