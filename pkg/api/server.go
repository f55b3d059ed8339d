package api

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/psaab/fgtconf/pkg/configstore"
	"github.com/psaab/fgtconf/pkg/logging"
	"github.com/psaab/fgtconf/pkg/metrics"
	"github.com/psaab/fgtconf/pkg/redact"
)

// Config configures the API server.
type Config struct {
	Addr      string
	HTTPSAddr string       // HTTPS listen address (empty = no HTTPS)
	TLS       bool         // enable HTTPS with auto-generated certificate
	CertDir   string       // where the generated certificate is kept
	Auth      *AuthConfig  // nil = no authentication
	Store     *configstore.Store
	Metrics   *metrics.Parser // records loads; may be nil
	Logs      *logging.Buffer // backs the logs endpoints; may be nil
	Redact    redact.Options
	// RedactDefault redacts rendered output unless ?redact=false is given.
	RedactDefault bool
}

// Server is the HTTP API server.
type Server struct {
	httpServer    *http.Server
	httpsServer   *http.Server
	store         *configstore.Store
	metrics       *metrics.Parser
	logs          *logging.Buffer
	redact        redact.Options
	redactDefault bool
	startTime     time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:         cfg.Store,
		metrics:       cfg.Metrics,
		logs:          cfg.Logs,
		redact:        cfg.Redact,
		redactDefault: cfg.RedactDefault,
		startTime:     time.Now(),
	}

	var handler http.Handler = s.routes()
	if cfg.Auth != nil {
		handler = authMiddleware(*cfg.Auth, handler)
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	// Set up HTTPS server with auto-generated self-signed certificate
	if cfg.TLS && cfg.HTTPSAddr != "" {
		tlsCert, err := generateSelfSignedCert(cfg.CertDir)
		if err != nil {
			slog.Warn("failed to generate self-signed certificate", "err", err)
		} else {
			s.httpsServer = &http.Server{
				Addr:    cfg.HTTPSAddr,
				Handler: handler,
				TLSConfig: &tls.Config{
					Certificates: []tls.Certificate{tlsCert},
					MinVersion:   tls.VersionTLS12,
				},
			}
		}
	}

	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health + metrics
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler(metrics.NewRegistry(s.store, s.metrics)))

	// REST API v1
	mux.HandleFunc("GET /api/v1/status", s.statusHandler)
	mux.HandleFunc("GET /api/v1/config", s.configHandler)
	mux.HandleFunc("GET /api/v1/config/export", s.configExportHandler)
	mux.HandleFunc("GET /api/v1/config/history", s.configHistoryHandler)
	mux.HandleFunc("GET /api/v1/config/compare", s.configCompareHandler)
	mux.HandleFunc("POST /api/v1/config/load", s.configLoadHandler)
	mux.HandleFunc("GET /api/v1/logs", s.logsHandler)

	// SSE streaming
	mux.HandleFunc("GET /api/v1/logs/stream", s.logStreamHandler)

	return mux
}

// Run starts the HTTP (and optionally HTTPS) server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Start HTTPS server if configured
	if s.httpsServer != nil {
		go func() {
			slog.Info("HTTPS API server listening", "addr", s.httpsServer.Addr)
			if err := s.httpsServer.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.httpsServer != nil {
		s.httpsServer.Shutdown(shutdownCtx)
	}
	return s.httpServer.Shutdown(shutdownCtx)
}

// DefaultCertDir holds the generated certificate when Config.CertDir is empty.
const DefaultCertDir = "/etc/fgtconf/tls"

// generateSelfSignedCert creates or loads a self-signed TLS certificate.
// If cert/key files exist on disk, they are loaded. Otherwise, a new
// ECDSA P-256 certificate is generated and persisted for reuse across restarts.
func generateSelfSignedCert(dir string) (tls.Certificate, error) {
	if dir == "" {
		dir = DefaultCertDir
	}
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	// Try loading existing cert
	if cert, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
		return cert, nil
	}

	// Generate new ECDSA key
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "fgtconfd"
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: hostname, Organization: []string{"fgtconf"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(10 * 365 * 24 * time.Hour), // 10 years
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	// Persist for reuse across restarts
	if err := os.MkdirAll(dir, 0700); err == nil {
		os.WriteFile(certPath, certPEM, 0644)
		os.WriteFile(keyPath, keyPEM, 0600)
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}
