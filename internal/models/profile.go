package models

import "time"

// RoleProfile groups the permissions granted to one actor role.
// Seeded at startup; resolved through the gate's cached resolver.
type RoleProfile struct {
	ID          uint             `gorm:"primaryKey"`
	Role        Role             `gorm:"size:50;uniqueIndex;not null"`
	Description string           `gorm:"size:500"`
	Permissions []RolePermission `gorm:"foreignKey:RoleProfileID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RolePermission is a single allowed action on a resource type.
// Format mirrors "resource:action" (e.g. "rfq:approve").
type RolePermission struct {
	ID            uint   `gorm:"primaryKey"`
	RoleProfileID uint   `gorm:"index;not null"`
	Resource      string `gorm:"size:50;not null"`
	Action        string `gorm:"size:50;not null"`
}

// Code returns the permission in "resource:action" format for matching.
func (p RolePermission) Code() string {
	return p.Resource + ":" + p.Action
}
