package handlers

import (
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/settings"
	"github.com/chalatsithapelo-ops/square15management-sub012/validation"
)

type CompanyHandler struct {
	cache *settings.Cache
	gate  *gate.Gate
}

func NewCompanyHandler(cache *settings.Cache, g *gate.Gate) *CompanyHandler {
	return &CompanyHandler{cache: cache, gate: g}
}

// Get handles GET /company.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "company:view") {
		return
	}
	cs, err := h.cache.Get(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cs)
}

// Update handles PUT /company. The numbering prefixes are deliberately not
// editable over HTTP; changing them mid-sequence would fork the counters.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "company:update") {
		return
	}
	var in struct {
		Name    string   `json:"name"`
		Email   string   `json:"email"`
		Phone   string   `json:"phone"`
		Address string   `json:"address"`
		LogoURL string   `json:"logo_url"`
		VATRate *float64 `json:"vat_rate,omitempty"`
	}
	if !decode(w, r, &in) {
		return
	}
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.Email("email", in.Email, v)
	if in.VATRate != nil {
		validation.RangeFloat("vat_rate", *in.VATRate, 0, 1, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	cs, err := h.cache.Get(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	updated := *cs
	updated.Name = in.Name
	updated.Email = in.Email
	updated.Phone = in.Phone
	updated.Address = in.Address
	updated.LogoURL = in.LogoURL
	if in.VATRate != nil {
		updated.VATRate = *in.VATRate
	}
	if err := h.cache.Update(r.Context(), &updated); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, &updated)
}
