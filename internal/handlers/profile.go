package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// ProfileHandler administers role profiles. Updates invalidate the gate's
// cached resolver so new grants apply without waiting out the TTL.
type ProfileHandler struct {
	db       *gorm.DB
	gate     *gate.Gate
	resolver *gate.CachedResolver
}

func NewProfileHandler(db *gorm.DB, g *gate.Gate, resolver *gate.CachedResolver) *ProfileHandler {
	return &ProfileHandler{db: db, gate: g, resolver: resolver}
}

// List handles GET /profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "profile:list") {
		return
	}
	var profiles []models.RoleProfile
	if err := h.db.WithContext(r.Context()).Preload("Permissions").Find(&profiles).Error; err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

// Update handles PUT /profiles/{role}, replacing the role's permissions.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "profile:update") {
		return
	}
	role := models.Role(r.PathValue("role"))
	var in struct {
		Permissions []string `json:"permissions"`
	}
	if !decode(w, r, &in) {
		return
	}
	for _, code := range in.Permissions {
		if !strings.Contains(code, ":") {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_permission", map[string]string{"permission": code})
			return
		}
	}

	var profile models.RoleProfile
	err := h.db.WithContext(r.Context()).Where("role = ?", role).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusNotFound, "profile_not_found", nil)
		return
	}
	if err != nil {
		httpx.Error(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_profile_id = ?", profile.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		for _, code := range in.Permissions {
			resource, action, _ := strings.Cut(code, ":")
			perm := models.RolePermission{RoleProfileID: profile.ID, Resource: resource, Action: action}
			if err := tx.Create(&perm).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}

	h.resolver.Invalidate(role)
	if err := h.db.WithContext(r.Context()).Preload("Permissions").First(&profile, profile.ID).Error; err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}
