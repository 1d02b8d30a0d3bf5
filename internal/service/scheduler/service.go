// Package scheduler runs periodic maintenance and notification jobs.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bhashahub/crowdsource/internal/config"
	"github.com/bhashahub/crowdsource/internal/mattermost"
	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/service/challenges"
	"github.com/bhashahub/crowdsource/internal/service/languages"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// Job names used in logs and metrics.
const (
	JobChallengeExpiry = "challenge_expiry"
	JobLanguageStats   = "language_stats"
	JobDailyDigest     = "daily_digest"
)

const digestWindow = 24 * time.Hour

// ChallengeExpirer deactivates ended challenges.
type ChallengeExpirer interface {
	ExpireEnded(ctx context.Context) (int64, error)
}

// LanguageStats maintains and reports per-language activity.
type LanguageStats interface {
	RefreshActiveContributors(ctx context.Context) error
	ActivitySince(ctx context.Context, since time.Time) ([]mattermost.LanguageActivity, error)
}

// DigestSender delivers the daily digest.
type DigestSender interface {
	SendDailyDigest(ctx context.Context, day time.Time, activity []mattermost.LanguageActivity) error
}

// Service handles background job scheduling.
type Service struct {
	config     *config.SchedulerConfig
	challenges ChallengeExpirer
	languages  LanguageStats
	digest     DigestSender
	now        func() time.Time
	log        *logger.Logger
	cron       *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.SchedulerConfig,
	challengeService *challenges.Service,
	languageService *languages.Service,
	mattermostClient *mattermost.Client,
	log *logger.Logger,
) *Service {
	var digest DigestSender
	if mattermostClient != nil {
		digest = mattermostClient
	}
	return NewServiceWithInterfaces(cfg, challengeService, languageService, digest, log)
}

// NewServiceWithInterfaces creates a scheduler with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg *config.SchedulerConfig,
	challengeService ChallengeExpirer,
	languageService LanguageStats,
	digest DigestSender,
	log *logger.Logger,
) *Service {
	return &Service{
		config:     cfg,
		challenges: challengeService,
		languages:  languageService,
		digest:     digest,
		now:        time.Now,
		log:        log,
	}
}

// Start registers all jobs and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	digestExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{JobChallengeExpiry, s.config.ChallengeExpirySchedule, s.runChallengeExpiry},
		{JobLanguageStats, s.config.LanguageStatsSchedule, s.runLanguageStats},
		{JobDailyDigest, digestExpr, s.runDailyDigest},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			s.log.Info().Str("job", job.name).Msg("Job has no schedule, skipping")
			continue
		}
		_, err := s.cron.AddFunc(job.schedule, func() {
			s.runJob(context.Background(), job.name, job.run)
		})
		if err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
		s.log.Info().
			Str("job", job.name).
			Str("schedule", job.schedule).
			Msg("Scheduled job registered")
	}

	s.cron.Start()

	s.log.Info().
		Str("timezone", s.config.Timezone).
		Str("digest_time", s.config.Time).
		Bool("skip_weekends", s.config.SkipWeekends).
		Int("jobs", len(s.cron.Entries())).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates the daily digest cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	if s.config.SkipWeekends {
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runJob wraps a job with timing, metrics and logging.
func (s *Service) runJob(ctx context.Context, name string, run func(context.Context) error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(name, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(name)
	}()

	if err := run(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(start)).
			Msg("Scheduled job failed")
		prommetrics.RecordSchedulerJobRun(name, "error")
		return
	}

	prommetrics.RecordSchedulerJobRun(name, "success")
	s.log.Debug().
		Str("job", name).
		Dur("duration", time.Since(start)).
		Msg("Scheduled job completed")
}

func (s *Service) runChallengeExpiry(ctx context.Context) error {
	_, err := s.challenges.ExpireEnded(ctx)
	return err
}

func (s *Service) runLanguageStats(ctx context.Context) error {
	return s.languages.RefreshActiveContributors(ctx)
}

func (s *Service) runDailyDigest(ctx context.Context) error {
	if s.digest == nil {
		return nil
	}

	now := s.now()
	activity, err := s.languages.ActivitySince(ctx, now.Add(-digestWindow))
	if err != nil {
		prommetrics.RecordSchedulerNotificationFailed("query_error")
		return fmt.Errorf("failed to collect language activity: %w", err)
	}

	if err := s.digest.SendDailyDigest(ctx, now, activity); err != nil {
		prommetrics.RecordSchedulerNotificationFailed("mattermost_error")
		return fmt.Errorf("failed to send daily digest: %w", err)
	}

	prommetrics.RecordSchedulerNotificationSent(JobDailyDigest)
	s.log.Info().
		Int("languages", len(activity)).
		Msg("Daily digest processed")
	return nil
}
