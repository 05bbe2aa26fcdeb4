package handlers

import (
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
)

type InvoiceHandler struct {
	engine *lifecycle.Engine
	gate   *gate.Gate
}

func NewInvoiceHandler(engine *lifecycle.Engine, g *gate.Gate) *InvoiceHandler {
	return &InvoiceHandler{engine: engine, gate: g}
}

// Create handles POST /invoices (portal contractors).
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "invoice:create") {
		return
	}
	var in lifecycle.CreateInvoiceInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.engine.CreateInvoice(r.Context(), actor, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "invoice:list") {
		return
	}
	invoices, err := h.engine.ListInvoices(r.Context(), actor)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

// Get handles GET /invoices/{number}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "invoice:view") {
		return
	}
	inv, err := h.engine.GetInvoice(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Pay handles POST /invoices/{number}/pay.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "invoice:pay") {
		return
	}
	inv, err := h.engine.MarkInvoicePaid(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}
