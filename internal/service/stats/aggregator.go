// Package stats computes per-user contribution statistics and badges.
//
// Snapshots are derived from the full set of a user's contribution records on
// every call. Nothing is cached or written back.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// StreakWindowDays is the number of calendar days, today included, counted by WeeklyStreak.
const StreakWindowDays = 7

// ContributionStore reads a user's contributions one kind partition at a time.
type ContributionStore interface {
	ListByOwnerAndKind(ctx context.Context, ownerID string, kind models.ContributionKind) ([]models.Contribution, error)
}

// Snapshot is the derived statistics view for one user. It depends only on the
// stored records and the current day, so repeated calls return equal values.
type Snapshot struct {
	UserID             string                          `json:"user_id"`
	TotalContributions int                             `json:"total_contributions"`
	LanguageBreakdown  map[string]int                  `json:"language_breakdown"`
	KindBreakdown      map[models.ContributionKind]int `json:"kind_breakdown"`
	WeeklyStreak       int                             `json:"weekly_streak"`
	Badges             []string                        `json:"badges"`
}

// Aggregator computes Snapshots from a ContributionStore.
type Aggregator struct {
	store     ContributionStore
	kinds     []models.ContributionKind
	languages map[string]struct{}
	loc       *time.Location
	now       func() time.Time
	log       *logger.Logger
}

// NewAggregator creates an aggregator. Records whose language is not in
// supportedLanguages are counted under models.UnknownLanguage. Day boundaries
// are taken in loc, UTC when nil.
func NewAggregator(store ContributionStore, supportedLanguages []string, loc *time.Location, log *logger.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}

	languages := make(map[string]struct{}, len(supportedLanguages))
	for _, code := range supportedLanguages {
		languages[code] = struct{}{}
	}

	return &Aggregator{
		store:     store,
		kinds:     models.AllContributionKinds,
		languages: languages,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// ComputeStats retrieves every contribution owned by userID and summarizes them.
// Any failed kind partition fails the whole call with an error matching ErrRetrieval.
func (a *Aggregator) ComputeStats(ctx context.Context, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	start := time.Now()
	records, err := a.fetchAll(ctx, userID)
	if err != nil {
		prommetrics.RecordStatsComputation(computationStatus(err), time.Since(start).Seconds())
		a.log.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to retrieve contributions for stats")
		return nil, err
	}

	snapshot := Summarize(records, a.now().In(a.loc), a.languages)
	snapshot.UserID = userID

	prommetrics.RecordStatsComputation("success", time.Since(start).Seconds())
	prommetrics.ObserveContributionsScanned(len(records))

	a.log.Debug().
		Str("user_id", userID).
		Int("total", snapshot.TotalContributions).
		Int("languages", len(snapshot.LanguageBreakdown)).
		Int("weekly_streak", snapshot.WeeklyStreak).
		Strs("badges", snapshot.Badges).
		Dur("duration", time.Since(start)).
		Msg("Computed user stats")

	return snapshot, nil
}

// fetchAll reads every kind partition concurrently and merges them only once
// all reads have succeeded.
func (a *Aggregator) fetchAll(ctx context.Context, userID string) ([]models.Contribution, error) {
	partitions := make([][]models.Contribution, len(a.kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range a.kinds {
		g.Go(func() error {
			records, err := a.store.ListByOwnerAndKind(gctx, userID, kind)
			if err != nil {
				return &RetrievalError{Kind: kind, Err: err}
			}
			for _, record := range records {
				if record.Kind != "" && record.Kind != kind {
					return &RetrievalError{
						Kind: kind,
						Err:  fmt.Errorf("store returned %s record %s", record.Kind, record.ID),
					}
				}
			}
			partitions[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range partitions {
		total += len(p)
	}
	merged := make([]models.Contribution, 0, total)
	for i, p := range partitions {
		for _, record := range p {
			if record.Kind == "" {
				record.Kind = a.kinds[i]
			}
			merged = append(merged, record)
		}
	}
	return merged, nil
}

// Summarize builds a Snapshot from records as seen at now. The weekly window
// and day boundaries use now's location.
func Summarize(records []models.Contribution, now time.Time, supportedLanguages map[string]struct{}) *Snapshot {
	snapshot := &Snapshot{
		TotalContributions: len(records),
		LanguageBreakdown:  map[string]int{},
		KindBreakdown:      map[models.ContributionKind]int{},
	}

	loc := now.Location()
	today := startOfDay(now)
	windowStart := today.AddDate(0, 0, -(StreakWindowDays - 1))
	activeDays := make(map[time.Time]struct{}, StreakWindowDays)

	for _, record := range records {
		language := record.Language
		if _, ok := supportedLanguages[language]; !ok {
			language = models.UnknownLanguage
		}
		snapshot.LanguageBreakdown[language]++
		snapshot.KindBreakdown[record.Kind]++

		created := record.CreatedAt.In(loc)
		if created.Before(windowStart) || created.After(now) {
			continue
		}
		activeDays[startOfDay(created)] = struct{}{}
	}

	snapshot.WeeklyStreak = len(activeDays)
	snapshot.Badges = EvaluateBadges(Totals{
		Contributions: snapshot.TotalContributions,
		Languages:     len(snapshot.LanguageBreakdown),
		WeeklyStreak:  snapshot.WeeklyStreak,
	})

	return snapshot
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func computationStatus(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrRetrieval):
		return "retrieval_failure"
	default:
		return "error"
	}
}
