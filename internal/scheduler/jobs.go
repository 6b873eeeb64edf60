package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/backup"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/sectors"
)

// FundRefreshJob re-scrapes stale fund detail records.
type FundRefreshJob struct {
	service *funds.Service
	log     zerolog.Logger
}

// NewFundRefreshJob creates a fund refresh job
func NewFundRefreshJob(service *funds.Service, log zerolog.Logger) *FundRefreshJob {
	return &FundRefreshJob{
		service: service,
		log:     log.With().Str("job", "fund_refresh").Logger(),
	}
}

// Name returns the job name
func (j *FundRefreshJob) Name() string {
	return "fund_refresh"
}

// Run refreshes stale detail records only; force refreshes stay manual.
func (j *FundRefreshJob) Run(ctx context.Context) error {
	result, err := j.service.UpdateAll(ctx, false, nil)
	if err != nil {
		return fmt.Errorf("fund refresh failed: %w", err)
	}

	j.log.Info().
		Int("total", result.Total).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Fund refresh finished")
	return nil
}

// CachePruneJob removes expired rows from the sector lookup cache.
type CachePruneJob struct {
	service *sectors.Service
	log     zerolog.Logger
}

// NewCachePruneJob creates a cache prune job
func NewCachePruneJob(service *sectors.Service, log zerolog.Logger) *CachePruneJob {
	return &CachePruneJob{
		service: service,
		log:     log.With().Str("job", "cache_prune").Logger(),
	}
}

// Name returns the job name
func (j *CachePruneJob) Name() string {
	return "cache_prune"
}

// Run deletes expired cache entries.
func (j *CachePruneJob) Run(ctx context.Context) error {
	deleted, err := j.service.DeleteExpired()
	if err != nil {
		return fmt.Errorf("cache prune failed: %w", err)
	}

	j.log.Info().Int64("deleted", deleted).Msg("Cache prune finished")
	return nil
}

// BackupJob ships a data directory archive to S3. When no backup target
// is configured the job is a no-op rather than a failure.
type BackupJob struct {
	runner *backup.Runner
	log    zerolog.Logger
}

// NewBackupJob creates a backup job
func NewBackupJob(runner *backup.Runner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		runner: runner,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run archives the data directory and uploads it.
func (j *BackupJob) Run(ctx context.Context) error {
	result, err := j.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, backup.ErrNotConfigured) {
			j.log.Debug().Msg("Backup skipped, no target configured")
			return nil
		}
		return err
	}

	j.log.Info().
		Str("key", result.Key).
		Int64("size_bytes", result.SizeBytes).
		Int("files", result.Files).
		Msg("Backup finished")
	return nil
}
