package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Error writes a domain error with the status its kind maps to. Untyped
// errors become opaque 500s.
func Error(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	JSONError(w, StatusForKind(de.Kind), de.Code, de.Details)
}

// TokenError collapses token failures to one generic response so the public
// surface does not reveal whether a link is unknown, expired or spent.
func TokenError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindUnauthenticated, domain.KindNotFound, domain.KindConflict, domain.KindForbidden:
		JSONError(w, http.StatusNotFound, "link_invalid_or_expired", nil)
	case domain.KindValidation:
		Error(w, err)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// StatusForKind maps the error taxonomy to HTTP statuses.
func StatusForKind(k domain.Kind) int {
	switch k {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
