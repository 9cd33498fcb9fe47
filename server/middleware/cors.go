package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CORSConfig controls which browser origins may drive the host interface.
// Tuning front-ends usually run on a dev server on a random loopback port,
// so an origin may end in ":*" to match any port on that host.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers" mapstructure:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" mapstructure:"max_age"` // seconds a preflight may be cached
}

// Validate rejects origin patterns that can never match.
func (c *CORSConfig) Validate() error {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			continue
		}
		u, err := url.Parse(strings.TrimSuffix(o, ":*"))
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return fmt.Errorf("cors origin %q must be \"*\" or scheme://host[:port|:*]", o)
		}
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("cors max_age must be non-negative (got: %d)", c.MaxAge)
	}
	return nil
}

// CORS sets CORS headers for allowed origins. Preflights from allowed
// origins are answered with 204; from any other origin with 403.
func CORS(cfg *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")
			allowed := originAllowed(origin, cfg.AllowedOrigins)
			if r.Method == http.MethodOptions {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				setPreflightHeaders(w.Header(), cfg)
				setOriginHeaders(w.Header(), origin, cfg)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if allowed {
				setOriginHeaders(w.Header(), origin, cfg)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setOriginHeaders(h http.Header, origin string, cfg *CORSConfig) {
	h.Set("Access-Control-Allow-Origin", origin)
	if len(cfg.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
	}
	if len(cfg.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
	}
	if cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func setPreflightHeaders(h http.Header, cfg *CORSConfig) {
	if len(cfg.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
	}
	if cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		switch {
		case a == "*", a == origin:
			return true
		case strings.HasSuffix(a, ":*"):
			host := strings.TrimSuffix(a, "*")
			port, ok := strings.CutPrefix(origin, host)
			if ok && port != "" {
				if _, err := strconv.Atoi(port); err == nil {
					return true
				}
			}
		}
	}
	return false
}
