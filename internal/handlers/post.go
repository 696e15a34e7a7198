package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loopfeed/apiserver/internal/events"
	"github.com/loopfeed/apiserver/internal/services"
	"github.com/loopfeed/apiserver/internal/storage"
	"github.com/loopfeed/apiserver/internal/store"
	"github.com/loopfeed/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20
	formFieldTitle     = "title"
	formFieldContent   = "content"
	formFieldImage     = "image"
)

// MediaStore is the slice of the storage layer the handlers use.
type MediaStore interface {
	UploadFile(ctx context.Context, localPath string) (string, error)
	Remove(ctx context.Context, objectName string) storage.DeleteResult
	PresignedURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

// PostHandler provides HTTP handlers for posts, comments and likes.
type PostHandler struct {
	postService    *services.PostService
	commentService *services.CommentService
	media          MediaStore
	publisher      *events.Publisher
}

// NewPostHandler constructs a handler with the provided dependencies.
func NewPostHandler(
	postService *services.PostService,
	commentService *services.CommentService,
	media MediaStore,
	publisher *events.Publisher,
) *PostHandler {
	return &PostHandler{
		postService:    postService,
		commentService: commentService,
		media:          media,
		publisher:      publisher,
	}
}

// PostRouter registers post routes on the given router. All post routes
// require an authenticated session, including the image proxy.
func PostRouter(
	r chi.Router,
	postService *services.PostService,
	commentService *services.CommentService,
	media MediaStore,
	publisher *events.Publisher,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPostHandler(postService, commentService, media, publisher)

	r.Use(authMiddleware)
	r.Get("/", handler.ListPosts)
	r.Post("/", handler.CreatePost)
	r.Get("/my-posts", handler.MyPosts)
	r.Get("/images/{imageName}", handler.ServeImage)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.Put("/", handler.UpdatePost)
		r.Delete("/", handler.DeletePost)
		r.Post("/like", handler.LikePost)
		r.Post("/comments", handler.CreateComment)
		r.Delete("/comments/{commentID}", handler.DeleteComment)
	})
}

// ListPosts returns one page of posts, optionally filtered by ?search=.
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	items, total, err := h.postService.List(r.Context(), search, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Items:    items,
		Page:     page,
		PageSize: services.PageSize,
		Total:    total,
		Search:   search,
	})
}

// MyPosts returns one page of the current user's posts.
func (h *PostHandler) MyPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.postService.ListByAuthor(r.Context(), userID, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Items:    items,
		Page:     page,
		PageSize: services.PageSize,
		Total:    total,
	})
}

// GetPost returns a post with its comments, oldest comment first.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	comments, err := h.commentService.ListByPost(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch comments")
		return
	}

	writeJSON(w, http.StatusOK, PostDetailResponse{Post: post, Comments: comments})
}

// CreatePost creates a post from a multipart form, uploading the
// optional image to object storage first. An upload failure aborts the
// request before anything is written to the database.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parsePostForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var objectName string
	if req.Image != nil {
		objectName, err = h.uploadImage(r.Context(), req.Image)
		if err != nil {
			log.Printf("post create: upload image: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload image")
			return
		}
	}

	created, err := h.postService.Create(r.Context(), types.Post{
		AuthorID: userID,
		Title:    req.Title,
		Content:  req.Content,
		Image:    objectName,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	h.publisher.PostCreated(userID, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// UpdatePost edits a post. Only the author may edit; a replacement image
// deletes the old object best-effort before the new one is uploaded.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}
	if post.AuthorID != userID {
		writeError(w, http.StatusForbidden, "only the author can edit this post")
		return
	}

	req, err := parsePostForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Image != nil {
		if post.Image != "" {
			h.removeImage(r.Context(), post.Image)
		}
		objectName, err := h.uploadImage(r.Context(), req.Image)
		if err != nil {
			log.Printf("post update: upload image: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload image")
			return
		}
		post.Image = objectName
	}

	post.Title = req.Title
	post.Content = req.Content

	updated, err := h.postService.Update(r.Context(), post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeletePost removes a post and its stored image. Only the author may
// delete; the image delete is best-effort and never blocks the request.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}
	if post.AuthorID != userID {
		writeError(w, http.StatusForbidden, "only the author can delete this post")
		return
	}

	if post.Image != "" {
		h.removeImage(r.Context(), post.Image)
	}

	if err := h.postService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LikePost toggles the current user's like on a post.
func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.postService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	liked, count, err := h.postService.ToggleLike(r.Context(), id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to toggle like")
		return
	}

	h.publisher.PostLiked(userID, id, liked)
	writeJSON(w, http.StatusOK, LikeResponse{Liked: liked, LikeCount: count})
}

// CreateComment adds a comment to a post.
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if _, err := h.postService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	created, err := h.commentService.Create(r.Context(), types.Comment{
		PostID:   id,
		AuthorID: userID,
		Content:  req.Content,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	h.publisher.CommentCreated(userID, id, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// DeleteComment removes a comment. Only the comment's author may delete.
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postID, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	commentID, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil || commentID < 1 {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	comments, err := h.commentService.ListByPost(r.Context(), postID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch comments")
		return
	}
	var target *types.Comment
	for i := range comments {
		if comments[i].ID == commentID {
			target = &comments[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if target.AuthorID != userID {
		writeError(w, http.StatusForbidden, "only the author can delete this comment")
		return
	}

	if err := h.commentService.Delete(r.Context(), commentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostUpsertRequest represents the parsed multipart form payload.
type PostUpsertRequest struct {
	Title   string
	Content string
	Image   *multipart.FileHeader
}

// PostListResponse is the paginated list response payload.
type PostListResponse struct {
	Items    []types.Post `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int          `json:"total"`
	Search   string       `json:"search,omitempty"`
}

// PostDetailResponse is the detail payload with comments.
type PostDetailResponse struct {
	Post     types.Post      `json:"post"`
	Comments []types.Comment `json:"comments"`
}

// LikeResponse is the like-toggle payload.
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

func parsePostID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "postID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid post id")
	}
	return id, nil
}

func parsePostForm(r *http.Request) (PostUpsertRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return PostUpsertRequest{}, errors.New("invalid multipart form")
	}

	title := strings.TrimSpace(r.FormValue(formFieldTitle))
	if title == "" {
		return PostUpsertRequest{}, errors.New("title is required")
	}
	content := strings.TrimSpace(r.FormValue(formFieldContent))
	if content == "" {
		return PostUpsertRequest{}, errors.New("content is required")
	}

	image, err := formImageFile(r.MultipartForm, formFieldImage)
	if err != nil {
		return PostUpsertRequest{}, err
	}

	return PostUpsertRequest{
		Title:   title,
		Content: content,
		Image:   image,
	}, nil
}

func formImageFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one image is allowed")
	}
	if files[0].Size > maxImageBytes {
		return nil, errors.New("image is too large")
	}
	return files[0], nil
}

// uploadImage spools the multipart file to a temporary local file and
// forwards it to object storage. The temp file is removed on every exit
// path.
func (h *PostHandler) uploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	localPath, err := saveTempFile(fileHeader)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(localPath)
	}()

	return h.media.UploadFile(ctx, localPath)
}

// removeImage deletes a stored object and logs the outcome; callers
// proceed regardless.
func (h *PostHandler) removeImage(ctx context.Context, objectName string) {
	result := h.media.Remove(ctx, objectName)
	if result.Status == storage.StoreUnreachable {
		log.Printf("remove image %s: %s: %v", objectName, result.Status, result.Err)
		return
	}
	if result.Status != storage.ObjectDeleted {
		log.Printf("remove image %s: %s", objectName, result.Status)
	}
}

func saveTempFile(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(tmp, io.LimitReader(src, maxImageBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > maxImageBytes {
		err = errors.New("image is too large")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
