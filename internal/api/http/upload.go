package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"station-rental-backend/internal/service"
	"station-rental-backend/internal/storage"
)

// maxPhotoBytes caps a single inspection photo upload.
const maxPhotoBytes = 10 << 20

type UploadHandler struct {
	photos storage.PhotoStorage
}

func NewUploadHandler(photos storage.PhotoStorage) *UploadHandler {
	return &UploadHandler{photos: photos}
}

func (h *UploadHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, r, service.ErrValidation("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, r, service.ErrValidation("photo file is required"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeError(w, r, service.ErrValidation("only image uploads are accepted, got %q", mimeType))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(data) > maxPhotoBytes {
		writeError(w, r, service.ErrValidation("photo exceeds the %d MB limit", maxPhotoBytes>>20))
		return
	}

	url, err := h.photos.Save(r.Context(), data, header.Filename, mimeType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *UploadHandler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, mimeType, err := h.photos.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, service.ErrNotFound("photo %q not found", name))
			return
		}
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
