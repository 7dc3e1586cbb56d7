package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tgo/usagedash/internal/model"
	"github.com/tgo/usagedash/internal/pkg/redis"
	"github.com/tgo/usagedash/internal/repository"
)

// StatsService is the read side consumed by dashboards: profile summaries
// and daily rows. Profile reads go through the Redis cache when one is
// configured; submissions invalidate it.
type StatsService struct {
	profileRepo *repository.UsageProfileRepository
	dailyRepo   *repository.DailyUsageRepository
	cache       *redis.ProfileCache
}

func NewStatsService(profileRepo *repository.UsageProfileRepository, dailyRepo *repository.DailyUsageRepository, cache *redis.ProfileCache) *StatsService {
	return &StatsService{profileRepo: profileRepo, dailyRepo: dailyRepo, cache: cache}
}

func (s *StatsService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.UsageProfile, error) {
	if s.cache != nil {
		if profile, err := s.cache.Get(ctx, userID); err == nil && profile != nil {
			return profile, nil
		}
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, profile); err != nil {
			log.Printf("Failed to cache profile for user %s: %v", userID, err)
		}
	}
	return profile, nil
}

func (s *StatsService) ListDaily(ctx context.Context, userID uuid.UUID, start, end *time.Time) ([]model.DailyUsage, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil {
		return s.dailyRepo.ListByProfileRange(ctx, profile.ID, *start, *end)
	}
	return s.dailyRepo.ListByProfile(ctx, profile.ID)
}
