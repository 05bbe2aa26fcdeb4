// Package identity resolves caller credentials into actors. A credential is
// a signed HS256 token whose subject must refer to an active portal user;
// the user row, not the token, is the source of truth for role and company
// affiliation.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

type ctxKey string

const actorCtxKey = ctxKey("actor")

// Actor is a verified caller identity.
type Actor struct {
	ID                 uint
	Role               models.Role
	Email              string
	CompanyAffiliation string
}

// IsPM reports whether the actor is a property manager.
func (a *Actor) IsPM() bool { return a.Role == models.RolePropertyManager }

// Claims is the credential payload. Role and company are informational;
// verification re-reads them from the user row.
type Claims struct {
	Role    string `json:"role"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	jwt.RegisteredClaims
}

// Oracle verifies credentials against the signing secret and the user table.
type Oracle struct {
	secret []byte
	db     *gorm.DB
}

func NewOracle(secret string, db *gorm.DB) *Oracle {
	return &Oracle{secret: []byte(secret), db: db}
}

// Verify parses and validates a credential and returns the actor it names.
// Fails with an unauthenticated error on any parse, signature, expiry or
// unknown-user condition.
func (o *Oracle) Verify(ctx context.Context, credential string) (*Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return o.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.Unauthenticated("invalid_credential")
	}
	uid64, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.Unauthenticated("invalid_credential")
	}
	var user models.User
	if err := o.db.WithContext(ctx).First(&user, uint(uid64)).Error; err != nil {
		return nil, domain.Unauthenticated("unknown_user")
	}
	if !user.PortalActive {
		return nil, domain.Unauthenticated("portal_disabled")
	}
	return &Actor{
		ID:                 user.ID,
		Role:               user.Role,
		Email:              user.Email,
		CompanyAffiliation: user.CompanyAffiliation,
	}, nil
}

// IssueCredential signs a credential for a user. Used by the login surface
// and by tests; the oracle itself only verifies.
func (o *Oracle) IssueCredential(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    string(user.Role),
		Email:   user.Email,
		Company: user.CompanyAffiliation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
}

// WithActor stores the actor in context.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, a)
}

// ActorFromContext extracts the verified actor, if any.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorCtxKey).(*Actor)
	return a, ok && a != nil
}

// Middleware attaches the actor to the request context when a valid
// bearer credential is present. Invalid credentials are left for
// RequireAuth to reject so public routes stay reachable.
func (o *Oracle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cred := bearerToken(r); cred != "" {
			if actor, err := o.Verify(r.Context(), cred); err == nil {
				r = r.WithContext(WithActor(r.Context(), actor))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
