// Package visibility computes, per entity type, the subset of records an
// actor may see. Every list/detail query goes through one of these scope
// builders; no handler re-derives the contractor-company exclusion on its
// own. Token-authenticated callers have no list surface at all and never
// reach this package.
package visibility

import (
	"context"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// Scope is a reusable query filter, applied with db.Scopes(...).
type Scope func(*gorm.DB) *gorm.DB

// Partitioner builds visibility scopes for actors.
type Partitioner struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Partitioner {
	return &Partitioner{db: db}
}

// CompanyUserIDs resolves a contractor actor to every portal user sharing
// its company affiliation. There is no stable company identifier, only the
// affiliation string. With no resolvable affiliation the actor falls back
// to own records only.
func (p *Partitioner) CompanyUserIDs(ctx context.Context, actor *identity.Actor) ([]uint, error) {
	if actor.CompanyAffiliation == "" {
		return []uint{actor.ID}, nil
	}
	var ids []uint
	err := p.db.WithContext(ctx).Model(&models.User{}).
		Where("company_affiliation = ?", actor.CompanyAffiliation).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []uint{actor.ID}, nil
	}
	return ids, nil
}

// contractorUserIDs is the admin exclusion set: every user holding any
// contractor role variant.
func (p *Partitioner) contractorUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := p.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ?", []models.Role{
			models.RoleContractor,
			models.RoleContractorJuniorManager,
			models.RoleContractorSeniorManager,
		}).
		Pluck("id", &ids).Error
	return ids, err
}

// ForRFQs scopes the RFQ table. PMs see what they own; contractors see
// what is targeted at their company; admins see the complement of
// contractor-targeted RFQs.
func (p *Partitioner) ForRFQs(ctx context.Context, actor *identity.Actor) (Scope, error) {
	switch {
	case actor.Role == models.RolePropertyManager:
		return whereOwnerPM(actor.ID), nil
	case actor.Role.IsContractor():
		ids, err := p.CompanyUserIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		sub := p.db.Model(&models.RFQTarget{}).Select("rfq_id").Where("contractor_id IN ?", ids)
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("id IN (?)", sub)
		}, nil
	case actor.Role.IsAdmin():
		ids, err := p.contractorUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return passthrough, nil
		}
		sub := p.db.Model(&models.RFQTarget{}).Select("rfq_id").Where("contractor_id IN ?", ids)
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("id NOT IN (?)", sub)
		}, nil
	}
	return nil, domain.Forbidden("no_visibility")
}

// ForQuotations scopes quotations. A PM's ownership runs through the RFQ
// number correlation; contractors see company-authored quotes; admins see
// everything not authored by a contractor-affiliated user.
func (p *Partitioner) ForQuotations(ctx context.Context, actor *identity.Actor) (Scope, error) {
	switch {
	case actor.Role == models.RolePropertyManager:
		sub := p.db.Model(&models.RFQ{}).Select("number").Where("owner_pm_id = ?", actor.ID)
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("rfq_number IN (?)", sub)
		}, nil
	case actor.Role.IsContractor():
		ids, err := p.CompanyUserIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		return whereCreatedByIn(ids), nil
	case actor.Role.IsAdmin():
		ids, err := p.contractorUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		return whereCreatedByExcluded(ids), nil
	}
	return nil, domain.Forbidden("no_visibility")
}

// ForOrders scopes orders. Contractors see orders assigned to anyone in
// their company; admins see the complement.
func (p *Partitioner) ForOrders(ctx context.Context, actor *identity.Actor) (Scope, error) {
	switch {
	case actor.Role == models.RolePropertyManager:
		return whereOwnerPM(actor.ID), nil
	case actor.Role.IsContractor():
		ids, err := p.CompanyUserIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("contractor_id IN ?", ids)
		}, nil
	case actor.Role.IsAdmin():
		ids, err := p.contractorUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return passthrough, nil
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("contractor_id IS NULL OR contractor_id NOT IN ?", ids)
		}, nil
	}
	return nil, domain.Forbidden("no_visibility")
}

// ForInvoices scopes invoices. PMs additionally see tenant-linked invoices:
// those whose counterpart email appears on their tenant roster.
func (p *Partitioner) ForInvoices(ctx context.Context, actor *identity.Actor) (Scope, error) {
	switch {
	case actor.Role == models.RolePropertyManager:
		sub := p.db.Model(&models.Tenant{}).Select("email").Where("manager_id = ?", actor.ID)
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("owner_pm_id = ? OR contact_email IN (?)", actor.ID, sub)
		}, nil
	case actor.Role.IsContractor():
		ids, err := p.CompanyUserIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		return whereCreatedByIn(ids), nil
	case actor.Role.IsAdmin():
		ids, err := p.contractorUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		return whereCreatedByExcluded(ids), nil
	}
	return nil, domain.Forbidden("no_visibility")
}

// ForNotifications: every actor sees only their own messages.
func (p *Partitioner) ForNotifications(_ context.Context, actor *identity.Actor) (Scope, error) {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("recipient_id = ?", actor.ID)
	}, nil
}

func passthrough(db *gorm.DB) *gorm.DB { return db }

func whereOwnerPM(id uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_pm_id = ?", id)
	}
}

func whereCreatedByIn(ids []uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_by_id IN ?", ids)
	}
}

func whereCreatedByExcluded(ids []uint) Scope {
	if len(ids) == 0 {
		return passthrough
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_by_id IS NULL OR created_by_id NOT IN ?", ids)
	}
}
