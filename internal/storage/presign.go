// Package storage presigns attachment uploads for the external submission
// path: callers upload before the mutating call and pass back the public
// URLs. The default implementation signs local upload URLs with an HMAC;
// swapping in an object-store presigner only means implementing Presigner.
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Presigned is the pair of URLs returned to the uploader.
type Presigned struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

// Presigner issues one-shot upload targets.
type Presigner interface {
	PresignUpload(ctx context.Context, fileName, fileType string) (Presigned, error)
}

// HMACPresigner signs upload keys with a shared secret.
type HMACPresigner struct {
	secret  []byte
	baseURL string
}

func NewHMACPresigner(secret, baseURL string) *HMACPresigner {
	return &HMACPresigner{secret: []byte(secret), baseURL: baseURL}
}

func (p *HMACPresigner) PresignUpload(_ context.Context, fileName, fileType string) (Presigned, error) {
	key := uuid.NewString() + "-" + sanitize(fileName)
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(key))
	sig := hex.EncodeToString(mac.Sum(nil))
	return Presigned{
		UploadURL: fmt.Sprintf("%s/uploads/%s?sig=%s&type=%s", p.baseURL, key, sig, fileType),
		PublicURL: fmt.Sprintf("%s/files/%s", p.baseURL, key),
	}, nil
}

// VerifyKey checks an upload key signature, for the upload endpoint.
func (p *HMACPresigner) VerifyKey(key, sig string) bool {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(key))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

func sanitize(name string) string {
	name = path.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
