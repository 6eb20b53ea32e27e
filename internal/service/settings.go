package service

import (
	"context"
	"fmt"
	"log"

	"trendyol-sync-api/internal/cache"
	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/internal/trendyol"
)

// SettingsService resolves the singleton integration settings. Every other
// component observes a non-absent configuration: a missing record is created
// lazily from defaults on first read.
type SettingsService struct {
	repo  repository.SettingsRepository
	cache *cache.SettingsCache
}

// NewSettingsService creates a settings service. cache may be nil.
func NewSettingsService(repo repository.SettingsRepository, c *cache.SettingsCache) *SettingsService {
	return &SettingsService{repo: repo, cache: c}
}

// Current returns the settings, creating them from defaults if absent.
func (s *SettingsService) Current(ctx context.Context) (*model.Settings, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if st == nil {
		st, err = s.repo.SaveSettings(ctx, model.DefaultSettings())
		if err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		log.Printf("[SettingsService] Created default settings record")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, *st); err != nil {
			log.Printf("[SettingsService] Cache set failed: %v", err)
		}
	}
	return st, nil
}

// Update persists new settings and refreshes the cache so no reader observes
// stale credentials.
func (s *SettingsService) Update(ctx context.Context, st model.Settings) (*model.Settings, error) {
	saved, err := s.repo.SaveSettings(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	if s.cache != nil {
		// Invalidate first: a failed refill falls back to the store.
		_ = s.cache.Invalidate(ctx)
		if err := s.cache.Set(ctx, *saved); err != nil {
			log.Printf("[SettingsService] Cache refresh failed: %v", err)
		}
	}
	return saved, nil
}

// Credentials returns the current marketplace credentials, or
// ErrMissingCredentials if none are configured yet.
func (s *SettingsService) Credentials(ctx context.Context) (trendyol.Credentials, error) {
	st, err := s.Current(ctx)
	if err != nil {
		return trendyol.Credentials{}, err
	}
	if !st.HasCredentials() {
		return trendyol.Credentials{}, ErrMissingCredentials
	}
	return trendyol.Credentials{
		SupplierID: st.SupplierID,
		APIKey:     st.APIKey,
		APISecret:  st.APISecret,
	}, nil
}
