package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read from the environment.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string
	LogFmt   string

	// VAPID keys for web push. Push is disabled when either is empty.
	VAPIDPublicKey  string
	VAPIDPrivateKey string

	// S3-compatible backup target. Backups are disabled when the bucket is empty.
	BackupEndpoint   string
	BackupBucket     string
	BackupRegion     string
	BackupAccessKey  string
	BackupSecretKey  string
	BackupPassphrase string

	// SweepInterval controls the background sweep tick.
	SweepInterval time.Duration
	// ApprovalReminderAge is how long a completion may sit pending before
	// parents get a push reminder.
	ApprovalReminderAge time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("STJERNE_PORT", "8080"),
		DBPath:              getEnv("STJERNE_DB_PATH", "stjerne.db"),
		LogLevel:            getEnv("STJERNE_LOG_LEVEL", "info"),
		LogFmt:              getEnv("STJERNE_LOG_FORMAT", "text"),
		VAPIDPublicKey:      os.Getenv("STJERNE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:     os.Getenv("STJERNE_VAPID_PRIVATE_KEY"),
		BackupEndpoint:      os.Getenv("STJERNE_BACKUP_S3_ENDPOINT"),
		BackupBucket:        os.Getenv("STJERNE_BACKUP_S3_BUCKET"),
		BackupRegion:        getEnv("STJERNE_BACKUP_S3_REGION", "auto"),
		BackupAccessKey:     os.Getenv("STJERNE_BACKUP_S3_ACCESS_KEY"),
		BackupSecretKey:     os.Getenv("STJERNE_BACKUP_S3_SECRET_KEY"),
		BackupPassphrase:    os.Getenv("STJERNE_BACKUP_PASSPHRASE"),
		SweepInterval:       getDuration("STJERNE_SWEEP_INTERVAL", time.Hour),
		ApprovalReminderAge: getDuration("STJERNE_APPROVAL_REMINDER_AGE", 24*time.Hour),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
