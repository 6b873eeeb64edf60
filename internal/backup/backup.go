// Package backup archives the data directory and ships the archive to
// an S3 bucket. The runner is inert until a target bucket is
// configured.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/events"
)

// ErrNotConfigured is returned when no target bucket is set.
var ErrNotConfigured = errors.New("backup target not configured")

// Uploader abstracts the S3 upload so tests can capture it.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Config selects the backup target. An empty Bucket disables backups;
// Endpoint switches to an S3-compatible store with path-style access.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Result describes one completed backup.
type Result struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	SizeBytes   int64     `json:"size_bytes"`
	Files       int       `json:"files"`
	CompletedAt time.Time `json:"completed_at"`
}

// Runner archives the data directory and uploads the archive.
type Runner struct {
	cfg      Config
	dataDir  string
	dbs      []*sql.DB
	uploader Uploader
	bus      *events.Bus
	log      zerolog.Logger
}

// NewRunner creates a backup runner. dbs are checkpointed before the
// archive is built so their files are complete on disk; uploader may
// be nil when backups are not configured.
func NewRunner(cfg Config, dataDir string, dbs []*sql.DB, uploader Uploader, bus *events.Bus, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		dataDir:  dataDir,
		dbs:      dbs,
		uploader: uploader,
		bus:      bus,
		log:      log.With().Str("component", "backup").Logger(),
	}
}

// Configured reports whether a backup target is set.
func (r *Runner) Configured() bool {
	return r.cfg.Bucket != "" && r.uploader != nil
}

// NewUploader builds an S3 uploader for the configured target.
func NewUploader(ctx context.Context, cfg Config) (*manager.Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return manager.NewUploader(client), nil
}

// Run archives the data directory and uploads it as
// <prefix>/clusterrisk-YYYYMMDD-HHMMSS.tar.gz.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}

	started := time.Now()
	r.checkpoint(ctx)

	archive, err := os.CreateTemp("", "clusterrisk-backup-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()

	files, err := r.buildArchive(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to archive data directory: %w", err)
	}

	info, err := archive.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind archive: %w", err)
	}

	key := path.Join(r.cfg.Prefix, "clusterrisk-"+started.UTC().Format("20060102-150405")+".tar.gz")

	_, err = r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Bucket),
		Key:         aws.String(key),
		Body:        archive,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	result := &Result{
		Bucket:      r.cfg.Bucket,
		Key:         key,
		SizeBytes:   info.Size(),
		Files:       files,
		CompletedAt: time.Now(),
	}

	r.bus.Publish(events.BackupCompleted, "backup", map[string]interface{}{
		"bucket":     result.Bucket,
		"key":        result.Key,
		"size_bytes": result.SizeBytes,
		"files":      result.Files,
	})

	r.log.Info().
		Str("bucket", result.Bucket).
		Str("key", result.Key).
		Int64("size_bytes", result.SizeBytes).
		Int("files", result.Files).
		Dur("duration", time.Since(started)).
		Msg("Backup uploaded")

	return result, nil
}

// checkpoint flushes WAL pages so the database files on disk are
// complete. Failures only degrade the archive, never abort it.
func (r *Runner) checkpoint(ctx context.Context) {
	for _, db := range r.dbs {
		if db == nil {
			continue
		}
		if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			r.log.Warn().Err(err).Msg("WAL checkpoint before backup failed")
		}
	}
}

// buildArchive writes a tar.gz of the data directory. WAL side files
// are skipped; the checkpoint above made them redundant.
func (r *Runner) buildArchive(w io.Writer) (int, error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	files := 0
	err := filepath.WalkDir(r.dataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(p, "-wal") || strings.HasSuffix(p, "-shm") {
			return nil
		}

		rel, err := filepath.Rel(r.dataDir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return err
		}
		f.Close()

		files++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	return files, nil
}
