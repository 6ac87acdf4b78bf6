// Package services implements domain business logic and use cases.
package services

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/domain/interfaces"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/gateways"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/services"
)

// FeedOptions tunes record selection and normalization
type FeedOptions struct {
	LookbackDays      int
	BatchSize         int
	SkipUnscored      bool
	DescriptionLength int
	MaxDataClasses    int
	Now               func() time.Time
}

// DefaultFeedOptions returns the options used when nothing is configured
func DefaultFeedOptions() FeedOptions {
	return FeedOptions{
		LookbackDays:      7,
		BatchSize:         100,
		DescriptionLength: 80,
		MaxDataClasses:    2,
		Now:               time.Now,
	}
}

// feedService implements FeedService on top of a ThreatFeedGateway
type feedService struct {
	gateway gateways.ThreatFeedGateway
	opts    FeedOptions
	logger  interfaces.Logger
}

// NewFeedService creates a new feed service with dependency injection
func NewFeedService(gateway gateways.ThreatFeedGateway, opts FeedOptions, logger interfaces.Logger) services.FeedService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &feedService{gateway: gateway, opts: opts, logger: logger}
}

// FetchVulnerabilities returns the count most recently published CVEs
func (s *feedService) FetchVulnerabilities(ctx context.Context, count int) entities.FeedResult[entities.VulnerabilityRecord] {
	if count <= 0 {
		return entities.FeedResult[entities.VulnerabilityRecord]{Records: []entities.VulnerabilityRecord{}}
	}

	now := s.opts.Now().UTC()
	query := gateways.VulnerabilityQuery{
		ResultsPerPage: max(s.opts.BatchSize, count),
		PubEnd:         now,
	}
	if s.opts.LookbackDays > 0 {
		query.PubStart = now.AddDate(0, 0, -s.opts.LookbackDays)
	}

	records, err := s.gateway.FetchVulnerabilities(ctx, query)
	if err != nil {
		return entities.FeedResult[entities.VulnerabilityRecord]{
			Records: PlaceholderVulnerabilities(count),
			Err:     asFeedError(entities.FeedNVD, err),
		}
	}

	selected := SelectVulnerabilities(records, count, s.opts.SkipUnscored)
	for i := range selected {
		selected[i].Description = NormalizeDescription(selected[i].Description, s.opts.DescriptionLength)
	}

	if missing := count - len(selected); missing > 0 {
		s.logger.Debug("padding vulnerability feed",
			interfaces.F("received", len(selected)),
			interfaces.F("missing", missing))
		selected = append(selected, PlaceholderVulnerabilities(missing)...)
	}

	return entities.FeedResult[entities.VulnerabilityRecord]{Records: selected}
}

// FetchBreaches returns the count most recently added breaches
func (s *feedService) FetchBreaches(ctx context.Context, count int) entities.FeedResult[entities.BreachRecord] {
	if count <= 0 {
		return entities.FeedResult[entities.BreachRecord]{Records: []entities.BreachRecord{}}
	}

	records, err := s.gateway.FetchBreaches(ctx)
	if err != nil {
		return entities.FeedResult[entities.BreachRecord]{
			Records: PlaceholderBreaches(count),
			Err:     asFeedError(entities.FeedHIBP, err),
		}
	}

	selected := SelectBreaches(records, count, s.opts.MaxDataClasses)
	for i := range selected {
		selected[i].Description = NormalizeDescription(selected[i].Description, s.opts.DescriptionLength)
	}

	if missing := count - len(selected); missing > 0 {
		s.logger.Debug("padding breach feed",
			interfaces.F("received", len(selected)),
			interfaces.F("missing", missing))
		selected = append(selected, PlaceholderBreaches(missing)...)
	}

	return entities.FeedResult[entities.BreachRecord]{Records: selected}
}

// SelectVulnerabilities orders records newest first and keeps count of them.
// Unscored records are dropped when skipUnscored is set.
// Pure business logic - no I/O
func SelectVulnerabilities(records []entities.VulnerabilityRecord, count int, skipUnscored bool) []entities.VulnerabilityRecord {
	selected := make([]entities.VulnerabilityRecord, 0, len(records))
	for _, r := range records {
		if skipUnscored && !r.HasScore() {
			continue
		}
		selected = append(selected, r)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if !selected[i].PublishedAt.Equal(selected[j].PublishedAt) {
			return selected[i].PublishedAt.After(selected[j].PublishedAt)
		}
		return selected[i].ID > selected[j].ID
	})

	if len(selected) > count {
		selected = selected[:count]
	}
	return selected
}

// SelectBreaches orders breaches by date added, newest first, keeps count of
// them and caps each data class list at maxDataClasses.
// Pure business logic - no I/O
func SelectBreaches(records []entities.BreachRecord, count, maxDataClasses int) []entities.BreachRecord {
	selected := make([]entities.BreachRecord, len(records))
	copy(selected, records)

	sort.SliceStable(selected, func(i, j int) bool {
		if !selected[i].AddedAt.Equal(selected[j].AddedAt) {
			return selected[i].AddedAt.After(selected[j].AddedAt)
		}
		return selected[i].Name < selected[j].Name
	})

	if len(selected) > count {
		selected = selected[:count]
	}

	for i := range selected {
		classes := selected[i].DataClasses
		if maxDataClasses > 0 && len(classes) > maxDataClasses {
			classes = classes[:maxDataClasses]
		}
		selected[i].DataClasses = append([]string{}, classes...)
	}
	return selected
}

// PlaceholderVulnerabilities returns count fallback records
func PlaceholderVulnerabilities(count int) []entities.VulnerabilityRecord {
	records := make([]entities.VulnerabilityRecord, count)
	for i := range records {
		records[i] = entities.PlaceholderVulnerability()
	}
	return records
}

// PlaceholderBreaches returns count fallback records
func PlaceholderBreaches(count int) []entities.BreachRecord {
	records := make([]entities.BreachRecord, count)
	for i := range records {
		records[i] = entities.PlaceholderBreach()
	}
	return records
}

// asFeedError keeps gateway classification and treats anything else as transport
func asFeedError(feed string, err error) error {
	var feedErr *entities.FeedError
	if errors.As(err, &feedErr) {
		return feedErr
	}
	return &entities.FeedError{Feed: feed, Kind: entities.FeedErrorTransport, Cause: err}
}
