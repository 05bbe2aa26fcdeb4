package handlers

import (
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/invite"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

// InviteHandler issues external submission links on demand, e.g. when an
// original invite expired before the counterparty acted.
type InviteHandler struct {
	invites *invite.Ledger
	gate    *gate.Gate
}

func NewInviteHandler(invites *invite.Ledger, g *gate.Gate) *InviteHandler {
	return &InviteHandler{invites: invites, gate: g}
}

// Create handles POST /invites.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "invite:create") {
		return
	}
	var in struct {
		Type    string `json:"type"`
		Email   string `json:"email"`
		RFQID   *uint  `json:"rfq_id,omitempty"`
		OrderID *uint  `json:"order_id,omitempty"`
		TTLDays int    `json:"ttl_days"`
	}
	if !decode(w, r, &in) {
		return
	}
	token, link, err := h.invites.Issue(r.Context(), invite.IssueInput{
		Type:    models.TokenType(in.Type),
		Email:   in.Email,
		RFQID:   in.RFQID,
		OrderID: in.OrderID,
		TTLDays: in.TTLDays,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	// The opaque token value never leaves through this surface; only the
	// public id and the link, which goes to the bound email.
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"public_id":  token.PublicID,
		"type":       token.Type,
		"email":      token.BoundEmail,
		"expires_at": token.ExpiresAt,
		"link":       link,
	})
}
