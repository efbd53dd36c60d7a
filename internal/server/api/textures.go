package api

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/evergreen/internal/carousel"
)

// TextureHandler serves carousel textures as PNG at /api/textures/{handle}.
// Handles are never reused, so responses are cacheable forever.
type TextureHandler struct {
	textures *carousel.TextureStore
}

// NewTextureHandler creates a TextureHandler over textures.
func NewTextureHandler(textures *carousel.TextureStore) *TextureHandler {
	return &TextureHandler{textures: textures}
}

// ServeHTTP implements the http.Handler interface.
func (h *TextureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handle := strings.TrimPrefix(r.URL.Path, "/api/textures/")
	if handle == "" || strings.Contains(handle, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	img, ok := h.textures.Get(handle)
	if !ok {
		writeError(w, http.StatusNotFound, "Texture not found")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode texture")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
