package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"fundflow/observability/logging"
)

// AuthConfig configures HMAC bearer-token validation.
type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	ScopeClaim string
	ClockSkew  time.Duration
}

type contextKey string

const (
	ContextKeySubject contextKey = "fundd.subject"
	ContextKeyScopes  contextKey = "fundd.scopes"
)

// Authenticator validates bearer tokens on the routes it wraps.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScopeClaim == "" {
		cfg.ScopeClaim = "scope"
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "auth")),
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		now:    time.Now,
	}
}

// Middleware rejects requests without a valid token carrying every scope in
// requiredScopes. It is a pass-through when auth is disabled.
func (a *Authenticator) Middleware(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			tokenString := extractBearer(r.Header.Get("Authorization"))
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims, err := a.parseToken(tokenString)
			if err == nil {
				err = validateClaims(claims, a.cfg.Issuer, a.cfg.Audience)
			}
			if err != nil {
				a.logger.Warn("token rejected",
					slog.String("error", err.Error()),
					logging.MaskField("token", tokenString))
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			scopes := extractScopes(claims, a.cfg.ScopeClaim)
			if !hasScopes(scopes, requiredScopes) {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient scope")
				return
			}
			subject, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
			ctx = context.WithValue(ctx, ContextKeyScopes, scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.cfg.ClockSkew), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func validateClaims(claims jwt.MapClaims, issuer, audience string) error {
	if issuer != "" {
		if value, ok := claims["iss"].(string); !ok || value != issuer {
			return errors.New("issuer mismatch")
		}
	}
	if audience != "" {
		matched := false
		switch val := claims["aud"].(type) {
		case string:
			matched = val == audience
		case []interface{}:
			for _, entry := range val {
				if s, ok := entry.(string); ok && s == audience {
					matched = true
					break
				}
			}
		}
		if !matched {
			return errors.New("audience mismatch")
		}
	}
	return nil
}

func extractScopes(claims jwt.MapClaims, scopeClaim string) []string {
	switch v := claims[scopeClaim].(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func hasScopes(scopes []string, required []string) bool {
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	for _, req := range required {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}

func extractBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
