package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"factorsync/internal/domain"
	"factorsync/internal/port"
)

var feedVersionRe = regexp.MustCompile(`V(\d+)\.(\d+)`)

// VersionFromURL returns the last V<major>.<minor> token of a feed URL, or ""
// when the URL carries none.
func VersionFromURL(url string) string {
	matches := feedVersionRe.FindAllString(url, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// FeedDefaults seeds the feed configuration row the first time it is read.
type FeedDefaults struct {
	CSVURL                string
	UpdateFrequencyMonths int
	ActiveSectors         []string
}

// UpdateFeedConfigInput is the DTO for changing the feed configuration.
// Nil fields are left untouched.
type UpdateFeedConfigInput struct {
	CSVURL                *string
	ActiveSectors         []string
	UpdateFrequencyMonths *int
}

// FeedConfigService defines the feed configuration contract.
type FeedConfigService interface {
	Get(ctx context.Context) (*domain.FeedConfiguration, error)
	Update(ctx context.Context, input UpdateFeedConfigInput) (*domain.FeedConfiguration, error)
	MarkUpdated(ctx context.Context, at time.Time, version string) error
}

type feedConfigService struct {
	repo     port.FeedConfigRepository
	defaults FeedDefaults
}

// NewFeedConfigService creates a new FeedConfigService implementation.
func NewFeedConfigService(repo port.FeedConfigRepository, defaults FeedDefaults) FeedConfigService {
	return &feedConfigService{repo: repo, defaults: defaults}
}

func (s *feedConfigService) Get(ctx context.Context) (*domain.FeedConfiguration, error) {
	cfg, err := s.repo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return s.repo.Create(ctx, &domain.FeedConfiguration{
		ID:                    domain.FeedConfigurationID,
		CSVURL:                s.defaults.CSVURL,
		UpdateFrequencyMonths: s.defaults.UpdateFrequencyMonths,
		ActiveSectors:         normalizeSectors(s.defaults.ActiveSectors),
	})
}

func (s *feedConfigService) Update(ctx context.Context, input UpdateFeedConfigInput) (*domain.FeedConfiguration, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if input.CSVURL != nil {
		url := strings.TrimSpace(*input.CSVURL)
		if url == "" {
			return nil, fmt.Errorf("csv url must not be empty")
		}
		cfg.CSVURL = url
	}
	if input.UpdateFrequencyMonths != nil {
		if *input.UpdateFrequencyMonths <= 0 {
			return nil, fmt.Errorf("update frequency must be positive, got %d", *input.UpdateFrequencyMonths)
		}
		cfg.UpdateFrequencyMonths = *input.UpdateFrequencyMonths
	}
	if input.ActiveSectors != nil {
		cfg.ActiveSectors = normalizeSectors(input.ActiveSectors)
	}

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *feedConfigService) MarkUpdated(ctx context.Context, at time.Time, version string) error {
	return s.repo.MarkUpdated(ctx, at, version)
}

// normalizeSectors trims names, drops blanks and keeps the first occurrence of each.
func normalizeSectors(sectors []string) domain.SectorList {
	out := make(domain.SectorList, 0, len(sectors))
	seen := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
