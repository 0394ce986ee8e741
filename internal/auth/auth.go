// Package auth resolves a request's bearer credential to a catalog User and
// makes it available to resolvers as a request-scoped context value.  A
// missing or unverifiable token never fails the request here - it just leaves
// no principal, and the write operations reject that later.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/dredly/GraphQL-library-backend/internal/store"
)

const (
	bearerPrefix = "Bearer "

	usernameClaim = "username"
	userIDClaim   = "id"
)

type contextKey struct{}

// WithUser returns a context carrying the given principal.
func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the request's principal, or nil if none was resolved.
func FromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(contextKey{}).(*store.User)
	return u
}

// UserFinder is the slice of the store the gate needs.
type UserFinder interface {
	UserByID(ctx context.Context, id string) (*store.User, error)
}

// Gate verifies bearer tokens and issues them on login.
//
// The password scheme is the catalog's original placeholder: every user
// shares one fixed password.  The comparison goes through a bcrypt hash so
// the plaintext is not kept around, but this is NOT a real authentication
// design and must not survive into any serious deployment.
type Gate struct {
	secret          []byte
	placeholderHash []byte
	users           UserFinder
}

func New(secret, placeholderPassword string, users UserFinder) (*Gate, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: signing secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(placeholderPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Gate{secret: []byte(secret), placeholderHash: hash, users: users}, nil
}

// IssueToken signs a token embedding the user's username and id.  No expiry
// is set; token lifetime is not enforced by this service.
func (g *Gate) IssueToken(u *store.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		usernameClaim: u.Username,
		userIDClaim:   u.ID,
	})
	return token.SignedString(g.secret)
}

// CheckPassword reports whether the supplied password matches the shared
// placeholder credential.
func (g *Gate) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(g.placeholderHash, []byte(password)) == nil
}

// Middleware gets the user from the JWT token in the Authorization header and
// adds it to the request context so resolvers can check they are authorised.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := g.resolve(r); u != nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// resolve returns the principal for the request, or nil if the header is
// absent, the token does not verify, or the user no longer exists.
func (g *Gate) resolve(r *http.Request) *store.User {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) <= len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return nil // no bearer credential
	}
	token, err := jwt.Parse(authHeader[len(bearerPrefix):], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		return nil // token invalid
	}
	id, _ := token.Claims.(jwt.MapClaims)[userIDClaim].(string)
	if id == "" {
		return nil // no id claim
	}
	u, err := g.users.UserByID(r.Context(), id)
	if err != nil {
		return nil
	}
	return u
}
