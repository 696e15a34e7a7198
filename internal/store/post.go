package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/loopfeed/apiserver/types"
)

// PostRepository handles persistence for posts and like membership.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `
		p.id, p.author_id, u.username, p.title, p.content, p.image,
		(SELECT COUNT(1) FROM post_likes l WHERE l.post_id = p.id),
		(SELECT COUNT(1) FROM comments c WHERE c.post_id = p.id),
		p.created_at, p.updated_at`

// searchFilter matches the title, body, or author username
// case-insensitively; an empty search term matches everything. The term
// must be passed through escapeLike so % and _ match literally.
const searchFilter = `
		($1 = ''
			OR p.title ILIKE '%' || $1 || '%' ESCAPE '\'
			OR p.content ILIKE '%' || $1 || '%' ESCAPE '\'
			OR u.username ILIKE '%' || $1 || '%' ESCAPE '\')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE metacharacters in a search term.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (types.Post, error) {
	var post types.Post
	err := scanner.Scan(
		&post.ID,
		&post.AuthorID,
		&post.AuthorUsername,
		&post.Title,
		&post.Content,
		&post.Image,
		&post.LikeCount,
		&post.CommentCount,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	return post, err
}

// List returns posts newest first, optionally filtered by a search term,
// along with the total number of matches.
func (r *PostRepository) List(ctx context.Context, search string, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}
	search = escapeLike(search)

	const countQuery = `
		SELECT COUNT(1)
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE` + searchFilter
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE` + searchFilter + `
		ORDER BY p.created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, search, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByAuthor returns one author's posts newest first with the total count.
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	const countQuery = `SELECT COUNT(1) FROM posts WHERE author_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, authorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.author_id = $1
		ORDER BY p.created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, authorID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListRecent returns the newest posts up to limit.
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]types.Post, error) {
	if limit < 1 {
		limit = 6
	}

	const query = `
		SELECT` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	const query = `
		SELECT` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	const query = `
		INSERT INTO posts (author_id, title, content, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.AuthorID,
		post.Title,
		post.Content,
		post.Image,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	post.UpdatedAt = time.Now()

	const query = `
		UPDATE posts
		SET title = $1,
			content = $2,
			image = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		post.Title,
		post.Content,
		post.Image,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike flips the user's like membership on a post and reports the new
// state plus the resulting like count. The insert uses ON CONFLICT DO
// NOTHING, so concurrent duplicate toggles cannot create duplicate rows:
// whichever request wins the insert observes liked=true and the other
// observes the remove path.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID int) (bool, int, error) {
	const insertQuery = `
		INSERT INTO post_likes (post_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`
	result, err := r.db.ExecContext(ctx, insertQuery, postID, userID, time.Now())
	if err != nil {
		return false, 0, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, 0, err
	}

	liked := inserted == 1
	if !liked {
		const deleteQuery = `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
		if _, err := r.db.ExecContext(ctx, deleteQuery, postID, userID); err != nil {
			return false, 0, err
		}
	}

	const countQuery = `SELECT COUNT(1) FROM post_likes WHERE post_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, countQuery, postID).Scan(&count); err != nil {
		return false, 0, err
	}
	return liked, count, nil
}
