package handlers

import (
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
)

type OrderHandler struct {
	engine *lifecycle.Engine
	gate   *gate.Gate
}

func NewOrderHandler(engine *lifecycle.Engine, g *gate.Gate) *OrderHandler {
	return &OrderHandler{engine: engine, gate: g}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "order:create") {
		return
	}
	var in lifecycle.CreateOrderInput
	if !decode(w, r, &in) {
		return
	}
	order, err := h.engine.CreateOrder(r.Context(), actor, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "order:list") {
		return
	}
	orders, err := h.engine.ListOrders(r.Context(), actor)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{number}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "order:view") {
		return
	}
	order, err := h.engine.GetOrder(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Accept handles POST /orders/{number}/accept (portal contractors).
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "order:accept") {
		return
	}
	order, err := h.engine.AcceptOrder(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
