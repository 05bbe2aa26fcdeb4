package handlers

import (
	"net/http"
	"strconv"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
)

type NotificationHandler struct {
	engine *lifecycle.Engine
	gate   *gate.Gate
}

func NewNotificationHandler(engine *lifecycle.Engine, g *gate.Gate) *NotificationHandler {
	return &NotificationHandler{engine: engine, gate: g}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "notification:list") {
		return
	}
	notes, err := h.engine.ListNotifications(r.Context(), actor)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, notes)
}

// MarkRead handles POST /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "notification:list") {
		return
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.engine.MarkNotificationRead(r.Context(), actor, uint(id)); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}
