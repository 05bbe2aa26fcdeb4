package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// DBResolver loads role profiles from the role_profiles table.
type DBResolver struct {
	db *gorm.DB
}

func NewDBResolver(db *gorm.DB) *DBResolver {
	return &DBResolver{db: db}
}

// Resolve loads the profile for a role. A missing profile resolves to nil
// (no permissions), not an error.
func (r *DBResolver) Resolve(ctx context.Context, role models.Role) (Profile, error) {
	var rp models.RoleProfile
	err := r.db.WithContext(ctx).Preload("Permissions").Where("role = ?", role).First(&rp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(rp.Permissions))
	for _, p := range rp.Permissions {
		perms = append(perms, Permission(p.Code()))
	}
	return NewStaticProfile(rp.Role, perms...), nil
}

// CachedResolver wraps a Resolver with TTL-based caching so permission
// checks do not hit the database on every request.
type CachedResolver struct {
	inner Resolver
	mu    sync.RWMutex
	cache map[models.Role]*cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: make(map[models.Role]*cacheEntry),
		ttl:   ttl,
	}
}

func (r *CachedResolver) Resolve(ctx context.Context, role models.Role) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[role]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, role)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[role] = &cacheEntry{profile: profile, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate removes a role from the cache. Call when its permissions change.
func (r *CachedResolver) Invalidate(role models.Role) {
	r.mu.Lock()
	delete(r.cache, role)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (r *CachedResolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[models.Role]*cacheEntry)
	r.mu.Unlock()
}
