package handlers

import (
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/lifecycle"
)

// ExternalHandler is the unauthenticated, token-gated surface. Every
// failure on this surface that stems from the token itself collapses to
// one generic 404 so callers cannot probe which tokens exist.
type ExternalHandler struct {
	engine *lifecycle.Engine
}

func NewExternalHandler(engine *lifecycle.Engine) *ExternalHandler {
	return &ExternalHandler{engine: engine}
}

// tokenFrom accepts the token from the query string or the decoded body.
func tokenFrom(r *http.Request, bodyToken string) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return bodyToken
}

// Context handles GET /external/context. It lets a link holder see what
// the token grants (bound record, email, expiry) before acting on it.
func (h *ExternalHandler) Context(w http.ResponseWriter, r *http.Request) {
	ec, err := h.engine.ExternalContext(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httpx.TokenError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ec)
}

// SubmitRFQQuote handles POST /external/rfq/quote.
func (h *ExternalHandler) SubmitRFQQuote(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.SubmitExternalQuotationInput
	if !decode(w, r, &in) {
		return
	}
	in.Token = tokenFrom(r, in.Token)
	quote, err := h.engine.SubmitExternalRFQQuotation(r.Context(), in)
	if err != nil {
		httpx.TokenError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"quote_number": quote.QuoteNumber,
		"status":       quote.Status,
		"total":        quote.Total,
	})
}

// AcceptOrder handles POST /external/order/accept.
func (h *ExternalHandler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &in) {
		return
	}
	order, err := h.engine.AcceptExternalOrder(r.Context(), tokenFrom(r, in.Token))
	if err != nil {
		httpx.TokenError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
}

// SubmitOrderInvoice handles POST /external/order/invoice.
func (h *ExternalHandler) SubmitOrderInvoice(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.SubmitExternalInvoiceInput
	if !decode(w, r, &in) {
		return
	}
	in.Token = tokenFrom(r, in.Token)
	inv, err := h.engine.SubmitExternalOrderInvoice(r.Context(), in)
	if err != nil {
		httpx.TokenError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"status":         inv.Status,
		"total":          inv.Total,
	})
}
