package api

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// AuthConfig holds authentication credentials for the API middleware.
type AuthConfig struct {
	Users   map[string]string // username -> password
	APIKeys map[string]bool   // valid API key tokens
	// Public lists paths served without credentials; nil means
	// /health and /metrics.
	Public []string
}

// ParseAuth builds an AuthConfig from "user:password" pairs and API keys.
// It returns nil when both are empty.
func ParseAuth(users, keys []string) (*AuthConfig, error) {
	if len(users) == 0 && len(keys) == 0 {
		return nil, nil
	}
	cfg := &AuthConfig{
		Users:   make(map[string]string, len(users)),
		APIKeys: make(map[string]bool, len(keys)),
	}
	for _, u := range users {
		name, pass, ok := strings.Cut(u, ":")
		if !ok || name == "" || pass == "" {
			return nil, fmt.Errorf("invalid user %q: want user:password", u)
		}
		cfg.Users[name] = pass
	}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k == "" {
			return nil, fmt.Errorf("empty API key")
		}
		cfg.APIKeys[k] = true
	}
	return cfg, nil
}

func (cfg AuthConfig) public(path string) bool {
	if cfg.Public == nil {
		return path == "/health" || path == "/metrics"
	}
	return slices.Contains(cfg.Public, path)
}

// authMiddleware wraps an http.Handler with Basic Auth / Bearer / X-API-Key checks.
func authMiddleware(cfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.public(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if auth := r.Header.Get("Authorization"); auth != "" {
			if checkAuthorization(auth, cfg) {
				next.ServeHTTP(w, r)
				return
			}
		}

		if key := r.Header.Get("X-API-Key"); key != "" {
			if cfg.APIKeys[key] {
				next.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="fgtconf API"`)
		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

// checkAuthorization validates an Authorization header value.
func checkAuthorization(auth string, cfg AuthConfig) bool {
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return cfg.APIKeys[token]
	}

	if encoded, ok := strings.CutPrefix(auth, "Basic "); ok {
		payload, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return false
		}
		user, pass, ok := strings.Cut(string(payload), ":")
		if !ok {
			return false
		}
		expected, exists := cfg.Users[user]
		if !exists {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(pass), []byte(expected)) == 1
	}

	return false
}
