package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/kallevik/stjerne/internal/store"
)

// Backup record statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
}

// Status is the manager's current state, exposed over the API and broadcast
// on change.
type Status struct {
	Enabled    bool       `json:"enabled"`
	InProgress bool       `json:"in_progress"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// StatusCallback is called whenever the backup status changes.
type StatusCallback func(Status)

// Manager produces encrypted database snapshots and uploads them to
// S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	db      *sql.DB
	records *store.BackupStore
	client  s3Client
	logger  *slog.Logger
}

// NewManager creates a backup manager. It stays disabled until the S3 bucket,
// credentials, and encryption passphrase are all configured.
func NewManager(cfg Config, db *sql.DB, records *store.BackupStore, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		records:  records,
		callback: callback,
		logger:   logger,
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.Enabled = true
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether backups are configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Enabled
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(mutate func(*Status)) {
	m.mu.Lock()
	mutate(&m.status)
	status := m.status
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(status)
	}
}

// RunNow snapshots the database with VACUUM INTO, encrypts the snapshot, and
// uploads it. The upload retries with backoff before giving up. Every attempt
// leaves a history record, failed ones included.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	if !m.Enabled() {
		return 0, fmt.Errorf("backup not configured")
	}

	m.mu.Lock()
	if m.status.InProgress {
		m.mu.Unlock()
		return 0, fmt.Errorf("backup already in progress")
	}
	m.status.InProgress = true
	status := m.status
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(status)
	}

	objectKey := fmt.Sprintf("stjerne-%s.db.enc", time.Now().UTC().Format("2006-01-02T150405Z"))

	size, err := m.runBackup(ctx, objectKey)
	if err != nil {
		m.records.Record(objectKey, 0, StatusFailed, err.Error())
		m.setStatus(func(s *Status) {
			s.InProgress = false
			s.LastError = err.Error()
		})
		return 0, err
	}

	record, err := m.records.Record(objectKey, size, StatusCompleted, "")
	if err != nil {
		return 0, fmt.Errorf("record backup: %w", err)
	}

	now := time.Now().UTC()
	m.setStatus(func(s *Status) {
		s.InProgress = false
		s.LastBackup = &now
		s.LastError = ""
	})
	return record.ID, nil
}

func (m *Manager) runBackup(ctx context.Context, objectKey string) (int64, error) {
	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("stjerne-snapshot-%d.db", time.Now().UnixNano()))
	defer os.Remove(snapshot)

	// VACUUM INTO writes a consistent copy without blocking writers.
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return 0, fmt.Errorf("snapshot database: %w", err)
	}

	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	encrypted, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt snapshot: %w", err)
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(2*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.cfg.S3.Bucket),
			Key:           aws.String(objectKey),
			Body:          bytes.NewReader(encrypted),
			ContentLength: aws.Int64(int64(len(encrypted))),
		})
		if err != nil {
			m.logger.Warn("backup upload attempt failed", "key", objectKey, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upload backup: %w", err)
	}

	m.logger.Info("backup uploaded", "key", objectKey, "size_bytes", len(encrypted))
	return int64(len(encrypted)), nil
}

// Restore downloads a backup, decrypts it, verifies SQLite integrity, and
// swaps it in as the live database file. The caller must restart the process
// afterwards; open connections still see the old file.
func (m *Manager) Restore(ctx context.Context, backupID int64) error {
	if !m.Enabled() {
		return fmt.Errorf("backup not configured")
	}

	record, err := m.records.GetByID(backupID)
	if err != nil {
		return fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return fmt.Errorf("backup %d not found", backupID)
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}
	defer result.Body.Close()

	encrypted, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plaintext, err := Decrypt(encrypted, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	restored := filepath.Join(os.TempDir(), fmt.Sprintf("stjerne-restore-%d.db", backupID))
	defer os.Remove(restored)
	if err := os.WriteFile(restored, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored file: %w", err)
	}

	if err := verifyIntegrity(restored); err != nil {
		return err
	}

	if err := os.WriteFile(m.cfg.DBPath, plaintext, 0600); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")

	m.logger.Info("restore complete, restart required", "backup_id", backupID)
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}
	return nil
}
