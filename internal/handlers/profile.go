package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loopfeed/apiserver/internal/services"
	"github.com/loopfeed/apiserver/internal/storage"
	"github.com/loopfeed/apiserver/internal/store"
	"github.com/loopfeed/apiserver/types"
)

const (
	formFieldBio         = "bio"
	formFieldDateOfBirth = "date_of_birth"
	formFieldEmail       = "email"
	formFieldPicture     = "profile_picture"
	dateOfBirthLayout    = "2006-01-02"
)

// ProfileHandler provides the dashboard and profile endpoints.
type ProfileHandler struct {
	userService    *services.UserService
	profileService *services.ProfileService
	postService    *services.PostService
	media          MediaStore
}

// NewProfileHandler constructs a handler with the provided dependencies.
func NewProfileHandler(
	userService *services.UserService,
	profileService *services.ProfileService,
	postService *services.PostService,
	media MediaStore,
) *ProfileHandler {
	return &ProfileHandler{
		userService:    userService,
		profileService: profileService,
		postService:    postService,
		media:          media,
	}
}

// ProfileRouter registers the dashboard and profile routes. All of them
// require an authenticated session.
func ProfileRouter(
	r chi.Router,
	userService *services.UserService,
	profileService *services.ProfileService,
	postService *services.PostService,
	media MediaStore,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProfileHandler(userService, profileService, postService, media)

	r.Use(authMiddleware)
	r.Get("/dashboard", handler.Dashboard)
	r.Get("/profile", handler.GetProfile)
	r.Put("/profile", handler.UpdateProfile)
}

// Dashboard returns the current user together with the most recent posts
// across the site.
func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	recent, err := h.postService.ListRecent(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch recent posts")
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{User: user, RecentPosts: recent})
}

// GetProfile returns the current user and their profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	profile, err := h.profileService.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: user, Profile: profile})
}

// UpdateProfile edits the current user's profile from a multipart form.
// Bio, date of birth, email and the profile picture are all optional; a
// replacement picture deletes the old object best-effort.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	profile, err := h.profileService.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	if _, ok := r.MultipartForm.Value[formFieldBio]; ok {
		profile.Bio = strings.TrimSpace(r.FormValue(formFieldBio))
	}

	if raw, ok := r.MultipartForm.Value[formFieldDateOfBirth]; ok && len(raw) > 0 {
		value := strings.TrimSpace(raw[0])
		if value == "" {
			profile.DateOfBirth = nil
		} else {
			parsed, err := time.Parse(dateOfBirthLayout, value)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
				return
			}
			profile.DateOfBirth = &parsed
		}
	}

	picture, err := formImageFile(r.MultipartForm, formFieldPicture)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if picture != nil {
		if profile.Picture != "" {
			h.removePicture(r, profile.Picture)
		}
		objectName, err := h.uploadPicture(r, picture)
		if err != nil {
			log.Printf("profile update: upload picture: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload profile picture")
			return
		}
		profile.Picture = objectName
	}

	updated, err := h.profileService.Update(r.Context(), profile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	// The email only changes once the profile update has gone through,
	// so a failed update leaves the account untouched.
	if email := strings.TrimSpace(r.FormValue(formFieldEmail)); email != "" {
		if err := h.userService.UpdateEmail(r.Context(), userID, email); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update email")
			return
		}
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: user, Profile: updated})
}

func (h *ProfileHandler) uploadPicture(r *http.Request, fileHeader *multipart.FileHeader) (string, error) {
	localPath, err := saveTempFile(fileHeader)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(localPath)
	}()

	return h.media.UploadFile(r.Context(), localPath)
}

func (h *ProfileHandler) removePicture(r *http.Request, objectName string) {
	result := h.media.Remove(r.Context(), objectName)
	if result.Err != nil {
		log.Printf("remove picture %s: %s: %v", objectName, result.Status, result.Err)
		return
	}
	if result.Status != storage.ObjectDeleted {
		log.Printf("remove picture %s: %s", objectName, result.Status)
	}
}

// DashboardResponse is the dashboard payload.
type DashboardResponse struct {
	User        types.User   `json:"user"`
	RecentPosts []types.Post `json:"recent_posts"`
}

// ProfileResponse is the profile payload.
type ProfileResponse struct {
	User    types.User        `json:"user"`
	Profile types.UserProfile `json:"profile"`
}
