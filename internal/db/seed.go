package db

import (
	"strings"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// rolePermissions maps each actor role to its "resource:action" grants.
// Admin variants share one profile shape; contractor manager variants add
// nothing over the base contractor today but keep their own rows so grants
// can diverge without a schema change.
var rolePermissions = map[models.Role][]string{
	models.RolePropertyManager: {
		"rfq:create", "rfq:list", "rfq:view", "rfq:review", "rfq:approve", "rfq:reject", "rfq:convert", "rfq:compare", "rfq:select",
		"quotation:list", "quotation:view",
		"order:create", "order:list", "order:view",
		"invoice:list", "invoice:view", "invoice:pay",
		"invite:create",
		"notification:list",
	},
	models.RoleContractor: {
		"rfq:list", "rfq:view",
		"quotation:create", "quotation:list", "quotation:view",
		"order:list", "order:view", "order:accept",
		"invoice:create", "invoice:list", "invoice:view",
		"notification:list",
	},
	models.RoleContractorJuniorManager: {
		"rfq:list", "rfq:view",
		"quotation:create", "quotation:list", "quotation:view",
		"order:list", "order:view", "order:accept",
		"invoice:create", "invoice:list", "invoice:view",
		"notification:list",
	},
	models.RoleContractorSeniorManager: {
		"rfq:list", "rfq:view",
		"quotation:create", "quotation:list", "quotation:view",
		"order:list", "order:view", "order:accept",
		"invoice:create", "invoice:list", "invoice:view",
		"notification:list",
	},
	models.RoleAdmin:       {"*:*"},
	models.RoleAdminSenior: {"*:*"},
	models.RoleAdminJunior: {
		"rfq:list", "rfq:view", "rfq:acknowledge", "rfq:review", "rfq:compare",
		"quotation:create", "quotation:list", "quotation:view",
		"order:list", "order:view",
		"invoice:list", "invoice:view",
		"notification:list",
	},
}

// SeedRoleProfiles ensures every role has a profile row with its grants.
// Existing profiles get their permissions replaced, so grant changes ship
// with the binary.
func SeedRoleProfiles(db *gorm.DB) error {
	for role, codes := range rolePermissions {
		var profile models.RoleProfile
		err := db.Where("role = ?", role).First(&profile).Error
		if err == gorm.ErrRecordNotFound {
			profile = models.RoleProfile{Role: role}
			if err := db.Create(&profile).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := db.Where("role_profile_id = ?", profile.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		for _, code := range codes {
			resource, action, ok := strings.Cut(code, ":")
			if !ok {
				continue
			}
			perm := models.RolePermission{
				RoleProfileID: profile.ID,
				Resource:      resource,
				Action:        action,
			}
			if err := db.Create(&perm).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedCompanySettings creates the settings row when absent.
func SeedCompanySettings(db *gorm.DB, defaults *models.CompanySettings) error {
	var count int64
	if err := db.Model(&models.CompanySettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(defaults).Error
}
