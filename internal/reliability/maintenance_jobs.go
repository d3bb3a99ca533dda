// Package reliability provides database maintenance and backup services.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/xmcrm/wealth-mcp/internal/database"
)

// HourlyCheckpointJob truncates the WAL to prevent bloat. The store is
// read-mostly so the WAL grows slowly, but seed loads and external
// provisioning writes still accumulate.
type HourlyCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHourlyCheckpointJob creates a new WAL checkpoint job
func NewHourlyCheckpointJob(db *database.DB, log zerolog.Logger) *HourlyCheckpointJob {
	return &HourlyCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *HourlyCheckpointJob) Name() string { return "wal_checkpoint" }

// Run executes the checkpoint
func (j *HourlyCheckpointJob) Run() error {
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Not critical: the autocheckpoint still bounds WAL growth
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
		return nil
	}
	return nil
}

// DailyMaintenanceJob performs daily database maintenance: integrity
// check, vacuum, and a final checkpoint.
type DailyMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(db *database.DB, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DailyMaintenanceJob) Name() string { return "daily_maintenance" }

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if err := j.db.Vacuum(); err != nil {
		j.log.Warn().Err(err).Msg("Vacuum failed")
		// Not critical, space reclamation can wait for the next run
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Daily maintenance completed")
	return nil
}
