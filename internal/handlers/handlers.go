// Package handlers exposes the lifecycle engine over JSON HTTP. Handlers
// authenticate through the identity middleware, authorize through the gate,
// then dispatch; they hold no business rules of their own.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
)

// requireActor extracts the verified actor or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (*identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication_required", nil)
		return nil, false
	}
	return actor, true
}

// authorize checks the actor's role against the gate, writing a 403 on
// denial.
func authorize(w http.ResponseWriter, r *http.Request, g *gate.Gate, actor *identity.Actor, perm gate.Permission) bool {
	if err := g.Authorize(r.Context(), actor.Role, perm); err != nil {
		httpx.Error(w, err)
		return false
	}
	return true
}

// decode reads a JSON body into dst, writing a 400 on malformed input.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return false
	}
	return true
}
