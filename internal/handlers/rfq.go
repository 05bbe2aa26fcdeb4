package handlers

import (
	"context"
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

type RFQHandler struct {
	engine *lifecycle.Engine
	gate   *gate.Gate
}

func NewRFQHandler(engine *lifecycle.Engine, g *gate.Gate) *RFQHandler {
	return &RFQHandler{engine: engine, gate: g}
}

// Create handles POST /rfqs.
func (h *RFQHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:create") {
		return
	}
	var in lifecycle.CreateRFQInput
	if !decode(w, r, &in) {
		return
	}
	rfq, err := h.engine.CreateRFQ(r.Context(), actor, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rfq)
}

// List handles GET /rfqs.
func (h *RFQHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:list") {
		return
	}
	rfqs, err := h.engine.ListRFQs(r.Context(), actor)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rfqs)
}

// Get handles GET /rfqs/{number}.
func (h *RFQHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:view") {
		return
	}
	rfq, err := h.engine.GetRFQ(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rfq)
}

// Acknowledge handles POST /rfqs/{number}/acknowledge.
func (h *RFQHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "rfq:acknowledge", h.engine.AcknowledgeRFQ)
}

// StartReview handles POST /rfqs/{number}/review.
func (h *RFQHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "rfq:review", h.engine.StartReview)
}

// Approve handles POST /rfqs/{number}/approve.
func (h *RFQHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "rfq:approve", h.engine.ApproveRFQ)
}

// Reject handles POST /rfqs/{number}/reject.
func (h *RFQHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:reject") {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &in) {
		return
	}
	rfq, err := h.engine.RejectRFQ(r.Context(), actor, r.PathValue("number"), in.Reason)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rfq)
}

// Compare handles GET /rfqs/{number}/quotations.
func (h *RFQHandler) Compare(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:compare") {
		return
	}
	rfq, quotes, err := h.engine.CompareQuotationsForRFQ(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rfq":        rfq,
		"quotations": quotes,
	})
}

// Select handles POST /rfqs/{number}/select.
func (h *RFQHandler) Select(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:select") {
		return
	}
	var in struct {
		QuotationID uint `json:"quotation_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	rfq, err := h.engine.SelectQuotationForRFQ(r.Context(), actor, r.PathValue("number"), in.QuotationID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rfq)
}

// Convert handles POST /rfqs/{number}/convert.
func (h *RFQHandler) Convert(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "rfq:convert") {
		return
	}
	order, err := h.engine.ConvertRFQToOrder(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// transition factors the body-less status moves.
func (h *RFQHandler) transition(w http.ResponseWriter, r *http.Request, perm gate.Permission,
	fn func(context.Context, *identity.Actor, string) (*models.RFQ, error)) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, perm) {
		return
	}
	rfq, err := fn(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rfq)
}
