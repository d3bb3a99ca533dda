package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/xmcrm/wealth-mcp/internal/database"
)

const backupPrefix = "backups/"

// BackupMetadata contains metadata about a backup archive
type BackupMetadata struct {
	Timestamp     time.Time `json:"timestamp"`
	ServerVersion string    `json:"server_version"`
	Database      string    `json:"database"`
	Filename      string    `json:"filename"`
	SizeBytes     int64     `json:"size_bytes"`
	Checksum      string    `json:"checksum"`
}

// BackupService archives the bank database and uploads it to an
// S3-compatible bucket, keeping a bounded number of past archives.
type BackupService struct {
	db        *database.DB
	s3        *S3Client
	version   string
	retention int
	log       zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, s3 *S3Client, version string, retention int, log zerolog.Logger) *BackupService {
	if retention < 1 {
		retention = 1
	}
	return &BackupService{
		db:        db,
		s3:        s3,
		version:   version,
		retention: retention,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup creates a backup archive and uploads it.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	// Flush the WAL so the main file is a complete snapshot
	if err := s.db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("failed to checkpoint before backup: %w", err)
	}

	stagingDir, err := os.MkdirTemp("", "bank-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	timestamp := startTime.UTC().Format("20060102-150405")
	archiveName := fmt.Sprintf("bank-%s.tar.gz", timestamp)
	archivePath := filepath.Join(stagingDir, archiveName)

	if err := s.createArchive(archivePath); err != nil {
		return fmt.Errorf("failed to create backup archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer archive.Close()

	if err := s.s3.Upload(ctx, backupPrefix+archiveName, archive); err != nil {
		return err
	}

	if err := s.pruneOldBackups(ctx); err != nil {
		// The new backup is already safe; pruning can retry next run
		s.log.Warn().Err(err).Msg("Failed to prune old backups")
	}

	s.log.Info().
		Str("archive", archiveName).
		Dur("duration", time.Since(startTime)).
		Msg("Backup completed")
	return nil
}

// createArchive writes a tar.gz containing the database file and a
// metadata.json with its checksum.
func (s *BackupService) createArchive(archivePath string) error {
	dbPath := s.db.Path()

	info, err := os.Stat(dbPath)
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	checksum, err := fileChecksum(dbPath)
	if err != nil {
		return fmt.Errorf("failed to checksum database file: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp:     time.Now().UTC(),
		ServerVersion: s.version,
		Database:      s.db.Name(),
		Filename:      filepath.Base(dbPath),
		SizeBytes:     info.Size(),
		Checksum:      checksum,
	}
	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	defer gzWriter.Close()
	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	if err := tarWriter.WriteHeader(&tar.Header{
		Name:    "metadata.json",
		Mode:    0644,
		Size:    int64(len(metadataJSON)),
		ModTime: metadata.Timestamp,
	}); err != nil {
		return fmt.Errorf("failed to write metadata header: %w", err)
	}
	if _, err := tarWriter.Write(metadataJSON); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	dbFile, err := os.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer dbFile.Close()

	if err := tarWriter.WriteHeader(&tar.Header{
		Name:    filepath.Base(dbPath),
		Mode:    0644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}); err != nil {
		return fmt.Errorf("failed to write database header: %w", err)
	}
	if _, err := io.Copy(tarWriter, dbFile); err != nil {
		return fmt.Errorf("failed to write database to archive: %w", err)
	}

	return nil
}

// pruneOldBackups deletes the oldest archives beyond the retention count.
func (s *BackupService) pruneOldBackups(ctx context.Context) error {
	objects, err := s.s3.List(ctx, backupPrefix)
	if err != nil {
		return err
	}

	if len(objects) <= s.retention {
		return nil
	}

	// Keys are timestamped, so the slice is oldest-first
	for _, obj := range objects[:len(objects)-s.retention] {
		if err := s.s3.Delete(ctx, obj.Key); err != nil {
			return err
		}
		s.log.Info().Str("key", obj.Key).Msg("Pruned old backup")
	}

	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// BackupJob adapts the backup service to the scheduler.
type BackupJob struct {
	service *BackupService
}

// NewBackupJob creates a scheduler job running the backup service
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "s3_backup" }

// Run executes a backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return j.service.CreateAndUploadBackup(ctx)
}
