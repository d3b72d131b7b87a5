package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chat-realtime/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated wraps every reason a credential is refused.
var ErrUnauthenticated = errors.New("unauthenticated")

var (
	ErrMissingToken = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	ErrUnknownUser  = fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
)

// UserLookup resolves a user id to a live user record.
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Claims carried by access tokens.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Gate authenticates connections against a bearer token once, at handshake.
type Gate struct {
	secret []byte
	users  UserLookup
}

func NewGate(secret string, users UserLookup) *Gate {
	return &Gate{secret: []byte(secret), users: users}
}

// ParseToken verifies signature and expiry of an HS256 token.
func (g *Gate) ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return claims, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
func (g *Gate) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := g.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := g.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return user, nil
}

// AuthenticateRequest is Authenticate applied to the request's bearer token.
func (g *Gate) AuthenticateRequest(r *http.Request) (*models.User, error) {
	return g.Authenticate(r.Context(), BearerToken(r))
}

// BearerToken reads the Authorization header, falling back to the token query
// parameter since browsers cannot set headers on websocket handshakes.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return r.URL.Query().Get("token")
}

// IssueToken mints an access token. Only seeding and tests use it; production
// tokens come from the identity provider.
func IssueToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
