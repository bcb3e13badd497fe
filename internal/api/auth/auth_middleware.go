package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type contextKey string

const principalKey contextKey = "principal"

var errNoToken = errors.New("no bearer token")

// Authenticate rejects requests without a valid access token.
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	v := newVerifier(jwtCfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			p, err := v.principalFromRequest(r)
			if err != nil {
				l.WarnContext(ctx, "Authentication failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, tokenErrorMessage(err))
				return
			}
			l.DebugContext(ctx, "Authentication successful", slog.String("userID", p.UserID.String()))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// OptionalAuthenticate attaches the principal when a valid token is present and lets
// anonymous requests through. A token that is present but invalid is still rejected.
func OptionalAuthenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	v := newVerifier(jwtCfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, err := v.principalFromRequest(r)
			switch {
			case errors.Is(err, errNoToken):
				next.ServeHTTP(w, r)
			case err != nil:
				logger.WarnContext(ctx, "Optional authentication failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, tokenErrorMessage(err))
			default:
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
			}
		})
	}
}

func WithPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(principalKey).(types.Principal)
	return p, ok
}

type verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func newVerifier(cfg config.JWTConfig) *verifier {
	if cfg.SecretKey == "" {
		panic("JWT Secret Key cannot be empty")
	}
	return &verifier{secret: []byte(cfg.SecretKey), issuer: cfg.Issuer, audience: cfg.Audience}
}

func (v *verifier) principalFromRequest(r *http.Request) (types.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return types.Principal{}, errNoToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return types.Principal{}, jwt.ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return types.Principal{}, err
	}
	if !token.Valid {
		return types.Principal{}, jwt.ErrTokenInvalidClaims
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return types.Principal{}, fmt.Errorf("%w: user id is not a uuid", jwt.ErrTokenInvalidClaims)
	}
	return types.Principal{UserID: userID, Role: claims.Role}, nil
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, errNoToken):
		return "Authorization header required"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	case errors.Is(err, jwt.ErrSignatureInvalid), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "Invalid token issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "Invalid token audience"
	}
	return "Invalid or expired token"
}
