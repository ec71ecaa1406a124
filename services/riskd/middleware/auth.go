package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"riskgate/crypto"
	"riskgate/observability/logging"
)

// AuthConfig configures HMAC-signed bearer tokens. The token subject is the
// caller's bech32 address.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

type callerKey struct{}

// CallerFromContext returns the authenticated caller attached by Middleware.
func CallerFromContext(ctx context.Context) (crypto.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(crypto.Address)
	return caller, ok
}

// WithCaller attaches caller to ctx.
func WithCaller(ctx context.Context, caller crypto.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		logger: logger.With("component", "auth"),
	}
}

// Middleware rejects requests without a valid bearer token and exposes the
// token subject through CallerFromContext.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := extractBearer(header)
		if tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		caller, err := a.Verify(tokenString)
		if err != nil {
			a.logger.Warn("token rejected",
				slog.String("error", err.Error()),
				logging.MaskField("authorization", header))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// Verify validates tokenString and returns its subject address.
func (a *Authenticator) Verify(tokenString string) (crypto.Address, error) {
	if len(a.secret) == 0 {
		return crypto.Address{}, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return crypto.Address{}, err
	}
	if !token.Valid {
		return crypto.Address{}, errors.New("token invalid")
	}
	caller, _, err := crypto.DecodeAddress(claims.Subject)
	if err != nil {
		return crypto.Address{}, errors.New("subject is not an address")
	}
	if caller.IsZero() {
		return crypto.Address{}, errors.New("subject is the zero address")
	}
	return caller, nil
}

// IssueToken signs an HS256 token for subject valid for ttl.
func IssueToken(secret string, subject crypto.Address, issuer, audience string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("auth secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
