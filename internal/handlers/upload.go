package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chalatsithapelo-ops/square15management-sub012/httpx"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/invite"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/storage"
)

const maxUploadBytes = 20 << 20

// UploadHandler presigns and receives invoice attachments for the external
// billing path. Presigning requires a live ORDER_INVOICE token; the token
// is only consumed later, by the invoice submission itself.
type UploadHandler struct {
	presigner *storage.HMACPresigner
	invites   *invite.Ledger
	dir       string
}

func NewUploadHandler(presigner *storage.HMACPresigner, invites *invite.Ledger, dir string) *UploadHandler {
	return &UploadHandler{presigner: presigner, invites: invites, dir: dir}
}

// Presign handles POST /external/uploads/presign.
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		FileName string `json:"file_name"`
		FileType string `json:"file_type"`
	}
	if !decode(w, r, &in) {
		return
	}
	if _, err := h.invites.Redeem(r.Context(), tokenFrom(r, in.Token), models.TokenTypeOrderInvoice); err != nil {
		httpx.TokenError(w, err)
		return
	}
	if in.FileName == "" {
		httpx.JSONError(w, http.StatusBadRequest, "file_name_required", nil)
		return
	}
	presigned, err := h.presigner.PresignUpload(r.Context(), in.FileName, in.FileType)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "presign_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, presigned)
}

// Put handles PUT /uploads/{key}, storing the body under the presigned key.
func (h *UploadHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	sig := r.URL.Query().Get("sig")
	if key == "" || !h.presigner.VerifyKey(key, sig) {
		httpx.JSONError(w, http.StatusForbidden, "invalid_signature", nil)
		return
	}
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed", nil)
		return
	}
	dst, err := os.Create(filepath.Join(h.dir, filepath.Base(key)))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed", nil)
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(r.Body, maxUploadBytes)); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"key": key})
}

// Serve handles GET /files/{key}.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := filepath.Base(r.PathValue("key"))
	http.ServeFile(w, r, filepath.Join(h.dir, key))
}
