package handlers

import (
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	imageURLTTL       = time.Hour
	imageCacheControl = "public, max-age=3600"
	defaultImageType  = "image/jpeg"
)

// imageClient fetches presigned objects from the store. Timeout bounds a
// stalled upstream; the request context still cancels early.
var imageClient = &http.Client{Timeout: 30 * time.Second}

// ServeImage streams a stored image through the API. The object store's
// address never reaches the client; the handler presigns a short-lived
// URL, fetches it server-side and relays the bytes.
func (h *PostHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	objectName := chi.URLParam(r, "imageName")
	if objectName == "" || strings.ContainsAny(objectName, "/\\") {
		writeError(w, http.StatusBadRequest, "invalid image name")
		return
	}

	// No resolvable signed URL means no serveable image.
	url, err := h.media.PresignedURL(r.Context(), objectName, imageURLTTL)
	if err != nil {
		log.Printf("serve image %s: presign: %v", objectName, err)
		writeError(w, http.StatusNotFound, "image not found")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error serving image")
		return
	}

	resp, err := imageClient.Do(req)
	if err != nil {
		log.Printf("serve image %s: fetch: %v", objectName, err)
		writeError(w, http.StatusInternalServerError, "error serving image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultImageType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("serve image %s: stream: %v", objectName, err)
	}
}
