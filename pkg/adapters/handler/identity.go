package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

const authCookieName = "auth_token"

type ownerCtxKey struct{}

// OwnerFromContext returns the identity AuthMiddleware attached to ctx.
func OwnerFromContext(ctx context.Context) domain.Owner {
	o, _ := ctx.Value(ownerCtxKey{}).(domain.Owner)
	return o
}

// WithOwner attaches o to ctx.
func WithOwner(ctx context.Context, o domain.Owner) context.Context {
	return context.WithValue(ctx, ownerCtxKey{}, o)
}

// accessClaims accepts the subject claim; UserID carries the legacy "id" claim.
type accessClaims struct {
	UserID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// JWTIdentity verifies HS256 access tokens from the Authorization header
// ("Bearer <token>") or the auth_token cookie.
type JWTIdentity struct {
	secret []byte
}

func NewJWTIdentity(secret string) *JWTIdentity {
	return &JWTIdentity{secret: []byte(secret)}
}

func (j *JWTIdentity) Identify(r *http.Request) (domain.Owner, error) {
	tokenString, err := tokenFromRequest(r)
	if err != nil {
		return "", err
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.UserID
	}
	if subject == "" {
		return "", fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return domain.Owner(subject), nil
}

// Issue signs a token for subject valid for ttl.
func (j *JWTIdentity) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", fmt.Errorf("%w: invalid token format", domain.ErrUnauthenticated)
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(authCookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return "", fmt.Errorf("%w: no token provided", domain.ErrUnauthenticated)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return cookie.Value, nil
}

var _ ports.IdentityProvider = (*JWTIdentity)(nil)
