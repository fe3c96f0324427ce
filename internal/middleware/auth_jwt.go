package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"escrow/internal/domain"
)

// TokenClaims identifies the caller. Subject carries the caller's account.
type TokenClaims struct {
	jwt.RegisteredClaims
}

type accountKey struct{}

// SignJWT issues an HS256 token for account valid for ttl.
func SignJWT(secret, issuer string, account domain.Account, ttl time.Duration) (string, error) {
	account = account.Normalize()
	if account.IsZero() {
		return "", errors.New("account is required")
	}
	now := time.Now()
	claims := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   account.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyJWT validates signature, expiry and issuer and returns the caller's account.
func VerifyJWT(secret, issuer, token string) (domain.Account, error) {
	var claims TokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.ZeroAccount, err
	}
	account := domain.Account(claims.Subject).Normalize()
	if account.IsZero() {
		return domain.ZeroAccount, errors.New("token subject is empty")
	}
	return account, nil
}

// AuthJWT rejects requests without a valid bearer token and stores the caller's
// account on the context.
func AuthJWT(secret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization")
				return
			}
			account, err := VerifyJWT(secret, issuer, strings.TrimSpace(parts[1]))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), account)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthorized", "message": msg},
	})
}

// AccountFromContext returns the authenticated caller, or the zero account.
func AccountFromContext(ctx context.Context) domain.Account {
	if v, ok := ctx.Value(accountKey{}).(domain.Account); ok {
		return v
	}
	return domain.ZeroAccount
}

func ContextWithAccount(ctx context.Context, account domain.Account) context.Context {
	if account.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, accountKey{}, account.Normalize())
}
