package services

import (
	"context"

	"github.com/loopfeed/apiserver/types"
)

// PageSize is the fixed number of posts per listing page.
const PageSize = 10

// RecentLimit is how many posts the dashboard shows.
const RecentLimit = 6

// PostRepository defines persistence operations for posts and likes.
type PostRepository interface {
	List(ctx context.Context, search string, offset, limit int) ([]types.Post, int, error)
	ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]types.Post, int, error)
	ListRecent(ctx context.Context, limit int) ([]types.Post, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
	ToggleLike(ctx context.Context, postID, userID int) (bool, int, error)
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo PostRepository
}

func NewPostService(repo PostRepository) *PostService {
	return &PostService{repo: repo}
}

// List returns one page of posts, newest first, optionally filtered by a
// case-insensitive search across title, content and author username.
func (s *PostService) List(ctx context.Context, search string, page int) ([]types.Post, int, error) {
	if page < 1 {
		page = 1
	}
	return s.repo.List(ctx, search, (page-1)*PageSize, PageSize)
}

// ListByAuthor returns one page of the author's posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID, page int) ([]types.Post, int, error) {
	if page < 1 {
		page = 1
	}
	return s.repo.ListByAuthor(ctx, authorID, (page-1)*PageSize, PageSize)
}

// ListRecent returns the dashboard's recent posts.
func (s *PostService) ListRecent(ctx context.Context) ([]types.Post, error) {
	return s.repo.ListRecent(ctx, RecentLimit)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

func (s *PostService) Create(ctx context.Context, post types.Post) (types.Post, error) {
	return s.repo.Create(ctx, post)
}

func (s *PostService) Update(ctx context.Context, post types.Post) (types.Post, error) {
	return s.repo.Update(ctx, post)
}

func (s *PostService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// ToggleLike flips the user's like on a post and returns the new state
// and count.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID int) (bool, int, error) {
	return s.repo.ToggleLike(ctx, postID, userID)
}
