// Package settings caches the company settings row. The row is
// expensive-to-fetch relative to how rarely it changes, so reads go through
// a process-wide cache with explicit invalidation on write. Tests inject a
// fresh cache per case.
package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// Defaults returned when no settings row exists yet.
func Defaults() *models.CompanySettings {
	return &models.CompanySettings{
		Name:          "Facility Management",
		VATRate:       0.15,
		RFQPrefix:     "PMRFQ",
		QuotePrefix:   "PMQ",
		OrderPrefix:   "PMO",
		InvoicePrefix: "PMINV",
	}
}

// Cache is a read-through cache over the single CompanySettings row.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration

	mu       sync.RWMutex
	current  *models.CompanySettings
	loadedAt time.Time
}

func NewCache(db *gorm.DB, ttl time.Duration) *Cache {
	return &Cache{db: db, ttl: ttl}
}

// Get returns the cached settings, re-reading after the TTL. A missing row
// yields the defaults without persisting them.
func (c *Cache) Get(ctx context.Context) (*models.CompanySettings, error) {
	c.mu.RLock()
	if c.current != nil && time.Since(c.loadedAt) < c.ttl {
		cur := c.current
		c.mu.RUnlock()
		return cur, nil
	}
	c.mu.RUnlock()

	var cs models.CompanySettings
	err := c.db.WithContext(ctx).First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = &cs
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return &cs, nil
}

// Update persists new settings and invalidates the cache.
func (c *Cache) Update(ctx context.Context, cs *models.CompanySettings) error {
	if err := c.db.WithContext(ctx).Save(cs).Error; err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops the cached row; the next Get re-reads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
