// Package backup snapshots the events database to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3 S3Config `yaml:"s3"`
	// Passphrase encrypts snapshots when set.
	Passphrase string `yaml:"passphrase"`
	// Interval between scheduled snapshots; zero disables the schedule.
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	Prefix        string        `yaml:"prefix"`
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"lastBackup,omitempty"`
	LastKey    string     `json:"lastKey,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"inProgress"`
}

// Manager takes snapshots of a SQLite database and uploads them.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status
	db     *sql.DB
	client s3Client
	now    func() time.Time
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "events/"
	}
	m := &Manager{
		cfg:    cfg,
		db:     db,
		now:    time.Now,
		logger: logger,
		status: Status{State: StateDisabled},
	}

	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
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

// Enabled reports whether storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Interval <= 0 || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
					continue
				}
				if err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) fail(err error) error {
	m.setStatus(Status{State: StateError, Error: err.Error(), LastBackup: m.Status().LastBackup})
	return err
}

// RunNow snapshots the database, encrypts it when a passphrase is set, and
// uploads it. It returns the object key.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	m.mu.Lock()
	client := m.client
	cfg := m.cfg
	if client == nil {
		m.mu.Unlock()
		return "", fmt.Errorf("backup not configured: S3 credentials missing")
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return "", fmt.Errorf("backup already running")
	}
	last := m.status.LastBackup
	m.status = Status{State: StateRunning, InProgress: true, LastBackup: last}
	m.mu.Unlock()

	data, err := m.snapshot(ctx)
	if err != nil {
		return "", m.fail(err)
	}

	now := m.now().UTC()
	key := cfg.Prefix + "backup-" + now.Format("2006-01-02T150405Z") + ".db"
	if cfg.Passphrase != "" {
		if data, err = Encrypt(data, cfg.Passphrase); err != nil {
			return "", m.fail(fmt.Errorf("encrypt: %w", err))
		}
		key += ".enc"
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", m.fail(fmt.Errorf("upload to s3: %w", err))
	}

	m.setStatus(Status{State: StateIdle, LastBackup: &now, LastKey: key})
	m.logger.Info("backup uploaded", "key", key, "bytes", len(data))
	return key, nil
}

// snapshot writes a consistent copy of the database with VACUUM INTO and
// reads it back.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "eventsd-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Cleanup deletes snapshots under the prefix older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	before := m.now().UTC().AddDate(0, 0, -cfg.RetentionDays)
	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(cfg.S3.Bucket),
			Prefix:            aws.String(cfg.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasPrefix(key, cfg.Prefix+"backup-") || obj.LastModified == nil || !obj.LastModified.Before(before) {
				continue
			}
			if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(cfg.S3.Bucket),
				Key:    aws.String(key),
			}); err != nil {
				m.logger.Warn("delete old backup", "key", key, "error", err)
				continue
			}
			m.logger.Info("old backup deleted", "key", key)
		}

		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		token = out.NextContinuationToken
	}
}
