package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayusman/evergreen/internal/carousel"
	"github.com/ayusman/evergreen/internal/logging"
)

// maxUploadBytes bounds a whole multipart photo upload.
const maxUploadBytes = 64 << 20

// PhotoIngester accepts raw photo files for the carousel.
type PhotoIngester interface {
	IngestPhotos(files [][]byte) (int, error)
}

// PhotoHandler handles POST /api/photos. Files are sent as multipart form
// parts named "photos".
type PhotoHandler struct {
	ingester PhotoIngester
	log      logging.Logger
}

// NewPhotoHandler creates a PhotoHandler.
func NewPhotoHandler(ingester PhotoIngester, log logging.Logger) *PhotoHandler {
	return &PhotoHandler{ingester: ingester, log: logging.OrNop(log)}
}

type photosResponse struct {
	Received int `json:"received"`
	Accepted int `json:"accepted"`
}

// ServeHTTP implements the http.Handler interface.
func (h *PhotoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["photos"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No photos in upload")
		return
	}

	files := make([][]byte, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.log.Debugf("Skipping upload %s: %v", fh.Filename, err)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.log.Debugf("Skipping upload %s: %v", fh.Filename, err)
			continue
		}
		files = append(files, data)
	}

	n, err := h.ingester.IngestPhotos(files)
	if err != nil {
		if errors.Is(err, carousel.ErrNoPhotos) {
			writeError(w, http.StatusUnprocessableEntity, "None of the files is a readable image")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to ingest photos")
		return
	}

	writeJSON(w, http.StatusAccepted, photosResponse{Received: len(headers), Accepted: n})
}
