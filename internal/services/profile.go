package services

import (
	"context"

	"github.com/loopfeed/apiserver/types"
)

// ProfileRepository defines persistence operations for user profiles.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID int) (types.UserProfile, error)
	Update(ctx context.Context, profile types.UserProfile) (types.UserProfile, error)
}

// ProfileService encapsulates profile use-cases.
type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

func (s *ProfileService) GetByUserID(ctx context.Context, userID int) (types.UserProfile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, profile types.UserProfile) (types.UserProfile, error) {
	return s.repo.Update(ctx, profile)
}
