package handlers

import (
	"fmt"
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/gate"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/snapshot"
)

type QuotationHandler struct {
	engine   *lifecycle.Engine
	gate     *gate.Gate
	renderer snapshot.Renderer
}

func NewQuotationHandler(engine *lifecycle.Engine, g *gate.Gate, renderer snapshot.Renderer) *QuotationHandler {
	return &QuotationHandler{engine: engine, gate: g, renderer: renderer}
}

// Submit handles POST /quotations.
func (h *QuotationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "quotation:create") {
		return
	}
	var in lifecycle.SubmitQuotationInput
	if !decode(w, r, &in) {
		return
	}
	quote, err := h.engine.SubmitQuotation(r.Context(), actor, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

// List handles GET /quotations.
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "quotation:list") {
		return
	}
	quotes, err := h.engine.ListQuotations(r.Context(), actor)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}

// Get handles GET /quotations/{number}.
func (h *QuotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "quotation:view") {
		return
	}
	quote, err := h.engine.GetQuotation(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// PDF handles GET /quotations/{number}/pdf, rendering the document on
// demand from stored data.
func (h *QuotationHandler) PDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok || !authorize(w, r, h.gate, actor, "quotation:view") {
		return
	}
	quote, err := h.engine.GetQuotation(r.Context(), actor, r.PathValue("number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	content, err := h.renderer.RenderQuotationPDF(quote)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_render_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", quote.QuoteNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
