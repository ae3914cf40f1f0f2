package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Claims are the bearer token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	TenantIDs []string `json:"tenant_ids,omitempty"`
}

// IssueToken signs an HS256 token for user with the given tenants.
func IssueToken(secret []byte, user string, tenants []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantIDs: tenants,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Authenticator turns bearer tokens into a domain.Authentication on the
// request context.
type Authenticator struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator. An empty secret disables token
// parsing; requests then run without authentication.
func NewAuthenticator(secret string, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Middleware installs the caller identity. A request without a token runs
// unauthenticated; a bad token is rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(a.secret) == 0 || header == "" {
			next.ServeHTTP(w, r.WithContext(domain.WithoutAuthentication(r.Context())))
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			unauthorized(w, "authorization header must be a bearer token")
			return
		}

		auth, err := a.parse(strings.TrimSpace(raw))
		if err != nil {
			a.logger.Debug("rejecting bearer token", zap.Error(err))
			unauthorized(w, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithAuthentication(r.Context(), auth)))
	})
}

func (a *Authenticator) parse(raw string) (domain.Authentication, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Authentication{}, err
	}
	if claims.Subject == "" {
		return domain.Authentication{}, errors.New("token has no subject")
	}

	tenants := make([]domain.TenantID, 0, len(claims.TenantIDs))
	for _, id := range claims.TenantIDs {
		if id != "" {
			tenants = append(tenants, domain.TenantID(id))
		}
	}
	return domain.Authentication{UserID: claims.Subject, TenantIDs: domain.NewTenantSet(tenants...)}, nil
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  http.StatusText(http.StatusUnauthorized),
		"status": http.StatusUnauthorized,
		"detail": detail,
	})
}
