package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/loopfeed/apiserver/types"
)

// ProfileRepository handles persistence for user profiles.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int) (types.UserProfile, error) {
	const query = `
		SELECT id, user_id, bio, picture, date_of_birth, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`
	var profile types.UserProfile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Bio,
		&profile.Picture,
		&profile.DateOfBirth,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UserProfile{}, ErrNotFound
		}
		return types.UserProfile{}, err
	}
	return profile, nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile types.UserProfile) (types.UserProfile, error) {
	profile.UpdatedAt = time.Now()

	const query = `
		UPDATE user_profiles
		SET bio = $1,
			picture = $2,
			date_of_birth = $3,
			updated_at = $4
		WHERE user_id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		profile.Bio,
		profile.Picture,
		profile.DateOfBirth,
		profile.UpdatedAt,
		profile.UserID,
	)
	if err != nil {
		return types.UserProfile{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.UserProfile{}, err
	}
	if affected == 0 {
		return types.UserProfile{}, ErrNotFound
	}
	return profile, nil
}
