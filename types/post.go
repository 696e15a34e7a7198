package types

import "time"

// Post represents a text post, optionally carrying one image stored in
// object storage. Posts are listed newest first.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// AuthorID identifies the user who wrote the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// AuthorUsername is the author's login name, denormalized into list
	// and detail payloads so clients do not need a second lookup.
	AuthorUsername string `json:"author_username" db:"author_username"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Content is the body text of the post.
	Content string `json:"content" db:"content"`

	// Image is the object storage name of the attached image
	// (e.g. a MinIO object key). Empty when the post has no image.
	// The bytes are served through the image proxy endpoint so the
	// object store's address never appears in client-facing URLs.
	Image string `json:"image" db:"image"`

	// LikeCount is the number of distinct users who liked the post.
	LikeCount int `json:"like_count" db:"like_count"`

	// CommentCount is the number of comments on the post.
	CommentCount int `json:"comment_count" db:"comment_count"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent edit.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Comment represents a comment made on a post. Comments on a post are
// listed oldest first.
type Comment struct {
	// ID is the unique identifier of the comment.
	ID int `json:"id" db:"id"`

	// PostID identifies the post this comment belongs to.
	PostID int `json:"post_id" db:"post_id"`

	// AuthorID identifies the user who wrote the comment.
	AuthorID int `json:"author_id" db:"author_id"`

	// AuthorUsername is the comment author's login name, denormalized
	// into detail payloads.
	AuthorUsername string `json:"author_username" db:"author_username"`

	// Content is the body text of the comment.
	Content string `json:"content" db:"content"`

	// CreatedAt is the timestamp when the comment was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent edit.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
