// Package gate is the central permission checkpoint. Each actor role
// resolves to a profile (a set of "resource:action" permissions); handlers
// ask the gate before dispatching into the lifecycle engine. Profiles are
// cached with a TTL so authorization does not hit the database per request.
package gate

import (
	"context"
	"strings"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// Permission is an allowed action on a resource type, "resource:action".
type Permission string

// NewPermission builds a permission from resource type and action.
func NewPermission(resource, action string) Permission {
	return Permission(resource + ":" + action)
}

// Wildcards for super permissions.
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resource, action string) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// Matches checks whether this permission satisfies a requested one.
// Supports wildcards: "*:*" matches all, "rfq:*" matches all rfq actions.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res == reqRes && act == WildcardAll
}

// Profile is the permission set granted to a role.
type Profile interface {
	Role() models.Role
	HasPermission(requested Permission) bool
}

// Resolver resolves a role to its profile.
type Resolver interface {
	Resolve(ctx context.Context, role models.Role) (Profile, error)
}

// Gate checks permissions through a resolver.
type Gate struct {
	resolver Resolver
}

func New(resolver Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Authorize returns a forbidden error unless the role's profile grants the
// requested permission.
func (g *Gate) Authorize(ctx context.Context, role models.Role, requested Permission) error {
	profile, err := g.resolver.Resolve(ctx, role)
	if err != nil {
		return err
	}
	if profile == nil || !profile.HasPermission(requested) {
		return domain.Forbidden("permission_denied")
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate) Can(ctx context.Context, role models.Role, requested Permission) bool {
	return g.Authorize(ctx, role, requested) == nil
}

// StaticProfile is an in-memory profile, used by seeds and tests.
type StaticProfile struct {
	role        models.Role
	permissions map[Permission]bool
}

func NewStaticProfile(role models.Role, permissions ...Permission) *StaticProfile {
	p := &StaticProfile{role: role, permissions: make(map[Permission]bool)}
	for _, perm := range permissions {
		p.permissions[perm] = true
	}
	return p
}

func (p *StaticProfile) Role() models.Role { return p.role }

func (p *StaticProfile) HasPermission(requested Permission) bool {
	for perm := range p.permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}
