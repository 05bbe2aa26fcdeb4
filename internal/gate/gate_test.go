package gate

import (
	"context"
	"testing"
	"time"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

func TestPermissionMatches(t *testing.T) {
	cases := []struct {
		held      Permission
		requested Permission
		want      bool
	}{
		{"rfq:approve", "rfq:approve", true},
		{"rfq:approve", "rfq:reject", false},
		{"rfq:*", "rfq:approve", true},
		{"rfq:*", "invoice:view", false},
		{"*:*", "anything:at_all", true},
		{"invoice:view", "invoice:*", false},
	}
	for _, c := range cases {
		if got := c.held.Matches(c.requested); got != c.want {
			t.Errorf("%s matches %s = %v, want %v", c.held, c.requested, got, c.want)
		}
	}
}

func TestPermissionParse(t *testing.T) {
	res, act := Permission("order:accept").Parse()
	if res != "order" || act != "accept" {
		t.Fatalf("parse = %s/%s", res, act)
	}
	res, act = Permission("malformed").Parse()
	if res != "" || act != "" {
		t.Fatalf("malformed parse = %s/%s", res, act)
	}
}

type staticResolver struct {
	profiles map[models.Role]Profile
	calls    int
}

func (r *staticResolver) Resolve(_ context.Context, role models.Role) (Profile, error) {
	r.calls++
	return r.profiles[role], nil
}

func TestGateAuthorize(t *testing.T) {
	resolver := &staticResolver{profiles: map[models.Role]Profile{
		models.RolePropertyManager: NewStaticProfile(models.RolePropertyManager, "rfq:*"),
	}}
	g := New(resolver)

	if err := g.Authorize(context.Background(), models.RolePropertyManager, "rfq:approve"); err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
	err := g.Authorize(context.Background(), models.RolePropertyManager, "invoice:pay")
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// Unknown role resolves to nil profile: denied, not an error.
	err = g.Authorize(context.Background(), models.RoleContractor, "rfq:view")
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for missing profile, got %v", err)
	}
}

func TestCachedResolverCachesAndInvalidates(t *testing.T) {
	inner := &staticResolver{profiles: map[models.Role]Profile{
		models.RoleAdmin: NewStaticProfile(models.RoleAdmin, PermissionSuperAdmin),
	}}
	cached := NewCachedResolver(inner, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cached.Resolve(context.Background(), models.RoleAdmin); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}

	cached.Invalidate(models.RoleAdmin)
	if _, err := cached.Resolve(context.Background(), models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls after invalidate = %d, want 2", inner.calls)
	}

	cached.InvalidateAll()
	if _, err := cached.Resolve(context.Background(), models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 3 {
		t.Fatalf("inner calls after invalidate all = %d, want 3", inner.calls)
	}
}
