package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loopfeed/apiserver/internal/cache"
	"github.com/loopfeed/apiserver/internal/services"
	"github.com/loopfeed/apiserver/internal/session"
	"github.com/loopfeed/apiserver/internal/storage"
	"github.com/loopfeed/apiserver/internal/store"
	"github.com/loopfeed/apiserver/types"
)

// fakePostRepo implements services.PostRepository in memory.
type fakePostRepo struct {
	mu     sync.Mutex
	nextID int
	posts  map[int]types.Post
	likes  map[int]map[int]bool
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts: map[int]types.Post{},
		likes: map[int]map[int]bool{},
	}
}

func (f *fakePostRepo) List(_ context.Context, search string, offset, limit int) ([]types.Post, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Post
	for _, post := range f.posts {
		if search == "" ||
			strings.Contains(strings.ToLower(post.Title), strings.ToLower(search)) ||
			strings.Contains(strings.ToLower(post.Content), strings.ToLower(search)) {
			matched = append(matched, post)
		}
	}
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakePostRepo) ListByAuthor(_ context.Context, authorID, offset, limit int) ([]types.Post, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Post
	for _, post := range f.posts {
		if post.AuthorID == authorID {
			matched = append(matched, post)
		}
	}
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakePostRepo) ListRecent(_ context.Context, limit int) ([]types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recent []types.Post
	for _, post := range f.posts {
		recent = append(recent, post)
		if len(recent) == limit {
			break
		}
	}
	return recent, nil
}

func (f *fakePostRepo) Get(_ context.Context, id int) (types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (f *fakePostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	post.ID = f.nextID
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepo) Update(_ context.Context, post types.Post) (types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.UpdatedAt = time.Now()
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) ToggleLike(_ context.Context, postID, userID int) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likes[postID] == nil {
		f.likes[postID] = map[int]bool{}
	}
	if f.likes[postID][userID] {
		delete(f.likes[postID], userID)
		return false, len(f.likes[postID]), nil
	}
	f.likes[postID][userID] = true
	return true, len(f.likes[postID]), nil
}

// fakeCommentRepo implements services.CommentRepository in memory.
type fakeCommentRepo struct {
	mu       sync.Mutex
	nextID   int
	comments []types.Comment
}

func (f *fakeCommentRepo) ListByPost(_ context.Context, postID int) ([]types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Comment
	for _, comment := range f.comments {
		if comment.PostID == postID {
			matched = append(matched, comment)
		}
	}
	return matched, nil
}

func (f *fakeCommentRepo) Create(_ context.Context, comment types.Comment) (types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	comment.ID = f.nextID
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, comment)
	return comment, nil
}

func (f *fakeCommentRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, comment := range f.comments {
		if comment.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeMedia implements MediaStore without talking to any object store.
type fakeMedia struct {
	mu         sync.Mutex
	uploads    int
	removed    []string
	presignURL string
	uploadErr  error
	presignErr error
}

func (f *fakeMedia) UploadFile(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return fmt.Sprintf("object-%d.png", f.uploads), nil
}

func (f *fakeMedia) Remove(_ context.Context, objectName string) storage.DeleteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, objectName)
	return storage.DeleteResult{Status: storage.ObjectDeleted}
}

func (f *fakeMedia) PresignedURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return f.presignURL + "/" + objectName + "?signature=x", nil
}

type postTestEnv struct {
	router   http.Handler
	posts    *fakePostRepo
	comments *fakeCommentRepo
	media    *fakeMedia
	sessions *session.Manager
}

func newPostTestServer(t *testing.T) *postTestEnv {
	t.Helper()
	env := &postTestEnv{
		posts:    newFakePostRepo(),
		comments: &fakeCommentRepo{},
		media:    &fakeMedia{},
		sessions: session.NewManager(cache.New(cache.NewMemoryBackend())),
	}
	authMiddleware := RequireAuth(testSecret, env.sessions)

	router := chi.NewRouter()
	router.Route("/posts", func(r chi.Router) {
		PostRouter(
			r,
			services.NewPostService(env.posts),
			services.NewCommentService(env.comments),
			env.media,
			nil,
			authMiddleware,
		)
	})
	env.router = router
	return env
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestListPostsRequiresAuth(t *testing.T) {
	env := newPostTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/posts/", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListPosts(t *testing.T) {
	env := newPostTestServer(t)
	user := types.User{ID: 1, Username: "ada"}
	cookie := sessionCookieFor(t, env.sessions, user)

	for i := 0; i < 3; i++ {
		_, _ = env.posts.Create(context.Background(), types.Post{
			AuthorID: 1,
			Title:    fmt.Sprintf("post %d", i),
			Content:  "hello world",
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/posts/?page=1", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PostListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 3 || len(resp.Items) != 3 {
		t.Fatalf("unexpected listing: total=%d items=%d", resp.Total, len(resp.Items))
	}
	if resp.Page != 1 || resp.PageSize != services.PageSize {
		t.Fatalf("unexpected paging: %+v", resp)
	}
}

func TestListPostsSearch(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	_, _ = env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "Gopher tips", Content: "x"})
	_, _ = env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "Cooking", Content: "y"})

	req := httptest.NewRequest(http.MethodGet, "/posts/?search=gopher", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var resp PostListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].Title != "Gopher tips" {
		t.Fatalf("unexpected search result: %+v", resp)
	}
}

func TestCreatePostWithImage(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	body, contentType := multipartBody(t, map[string]string{
		"title":   "My post",
		"content": "Some content",
	}, "image", "photo.png", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/posts/", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created types.Post
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Image != "object-1.png" {
		t.Fatalf("expected stored object name, got %q", created.Image)
	}
	if created.AuthorID != 1 {
		t.Fatalf("unexpected author: %d", created.AuthorID)
	}
}

func TestCreatePostMissingTitle(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	body, contentType := multipartBody(t, map[string]string{"content": "only content"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/posts/", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePostUploadFailure(t *testing.T) {
	env := newPostTestServer(t)
	env.media.uploadErr = fmt.Errorf("store down")
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	body, contentType := multipartBody(t, map[string]string{
		"title":   "My post",
		"content": "Some content",
	}, "image", "photo.png", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/posts/", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if len(env.posts.posts) != 0 {
		t.Fatalf("post must not be created when the upload fails")
	}
}

func TestUpdatePostNotAuthor(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 2, Username: "eve"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})

	body, contentType := multipartBody(t, map[string]string{"title": "new", "content": "new"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/posts/%d", created.ID), body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUpdatePostReplacesImage(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	created, _ := env.posts.Create(context.Background(), types.Post{
		AuthorID: 1, Title: "t", Content: "c", Image: "old.png",
	})

	body, contentType := multipartBody(t, map[string]string{
		"title":   "t2",
		"content": "c2",
	}, "image", "new.png", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/posts/%d", created.ID), body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.media.removed) != 1 || env.media.removed[0] != "old.png" {
		t.Fatalf("expected old image to be removed, got %v", env.media.removed)
	}
	var updated types.Post
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Image != "object-1.png" || updated.Title != "t2" {
		t.Fatalf("unexpected update: %+v", updated)
	}
}

func TestDeletePostRemovesImage(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	created, _ := env.posts.Create(context.Background(), types.Post{
		AuthorID: 1, Title: "t", Content: "c", Image: "a.png",
	})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/posts/%d", created.ID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(env.media.removed) != 1 || env.media.removed[0] != "a.png" {
		t.Fatalf("expected image removal, got %v", env.media.removed)
	}
	if len(env.posts.posts) != 0 {
		t.Fatalf("expected post to be deleted")
	}
}

func TestDeletePostNotAuthor(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 2, Username: "eve"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/posts/%d", created.ID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestLikeToggle(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})
	likeURL := fmt.Sprintf("/posts/%d/like", created.ID)

	req := httptest.NewRequest(http.MethodPost, likeURL, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp LikeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Liked || resp.LikeCount != 1 {
		t.Fatalf("expected liked with count 1, got %+v", resp)
	}

	// Toggling again removes the like.
	req = httptest.NewRequest(http.MethodPost, likeURL, nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	resp = LikeResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Liked || resp.LikeCount != 0 {
		t.Fatalf("expected unliked with count 0, got %+v", resp)
	}
}

func TestLikeUnknownPost(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	req := httptest.NewRequest(http.MethodPost, "/posts/99/like", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateComment(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})

	body := `{"content":"nice post"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/posts/%d/comments", created.ID), strings.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var comment types.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &comment); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if comment.Content != "nice post" || comment.PostID != created.ID || comment.AuthorID != 1 {
		t.Fatalf("unexpected comment: %+v", comment)
	}
}

func TestDeleteCommentNotAuthor(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 2, Username: "eve"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})
	comment, _ := env.comments.Create(context.Background(), types.Comment{PostID: created.ID, AuthorID: 1, Content: "x"})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/posts/%d/comments/%d", created.ID, comment.ID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDeleteComment(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})
	comment, _ := env.comments.Create(context.Background(), types.Comment{PostID: created.ID, AuthorID: 1, Content: "x"})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/posts/%d/comments/%d", created.ID, comment.ID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	remaining, _ := env.comments.ListByPost(context.Background(), created.ID)
	if len(remaining) != 0 {
		t.Fatalf("expected comment to be deleted, got %d", len(remaining))
	}
}

func TestGetPostWithComments(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	created, _ := env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "t", Content: "c"})
	_, _ = env.comments.Create(context.Background(), types.Comment{PostID: created.ID, AuthorID: 1, Content: "first"})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts/%d", created.ID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp PostDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Post.ID != created.ID || len(resp.Comments) != 1 {
		t.Fatalf("unexpected detail: %+v", resp)
	}
}

func TestServeImageHidesStoreAddress(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	env := newPostTestServer(t)
	env.media.presignURL = upstream.URL
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	req := httptest.NewRequest(http.MethodGet, "/posts/images/abc.png", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected upstream content type, got %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Fatalf("unexpected cache header: %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "png-bytes" {
		t.Fatalf("unexpected body: %q", body)
	}
	// The store's address must never leak into the response.
	host := strings.TrimPrefix(upstream.URL, "http://")
	for header, values := range rec.Header() {
		for _, value := range values {
			if strings.Contains(value, host) {
				t.Fatalf("header %s leaks the store address: %s", header, value)
			}
		}
	}
}

func TestServeImageUpstreamMiss(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	env := newPostTestServer(t)
	env.media.presignURL = upstream.URL
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	req := httptest.NewRequest(http.MethodGet, "/posts/images/absent.png", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServeImageUnresolvableURL(t *testing.T) {
	env := newPostTestServer(t)
	env.media.presignErr = fmt.Errorf("no such object")
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	req := httptest.NewRequest(http.MethodGet, "/posts/images/gone.png", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no signed URL can be resolved, got %d", rec.Code)
	}
}

func TestServeImageRejectsPathSeparators(t *testing.T) {
	env := newPostTestServer(t)
	handler := NewPostHandler(
		services.NewPostService(env.posts),
		services.NewCommentService(env.comments),
		env.media,
		nil,
	)

	req := httptest.NewRequest(http.MethodGet, "/posts/images/placeholder", nil)
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("imageName", `..\secrets.txt`)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
	rec := httptest.NewRecorder()
	handler.ServeImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMyPosts(t *testing.T) {
	env := newPostTestServer(t)
	cookie := sessionCookieFor(t, env.sessions, types.User{ID: 1, Username: "ada"})

	_, _ = env.posts.Create(context.Background(), types.Post{AuthorID: 1, Title: "mine", Content: "c"})
	_, _ = env.posts.Create(context.Background(), types.Post{AuthorID: 2, Title: "theirs", Content: "c"})

	req := httptest.NewRequest(http.MethodGet, "/posts/my-posts", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp PostListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].Title != "mine" {
		t.Fatalf("unexpected listing: %+v", resp)
	}
}
