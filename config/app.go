package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"signature-form-api/models"
)

// AppConfig is built once at startup and handed to every component.
type AppConfig struct {
	Port           string
	GinMode        string
	Environment    string
	AllowedOrigins []string

	Database DatabaseConfig
	Upload   UploadConfig
	SMTP     SMTPConfig

	RequireSignature bool
	LogSubmissions   bool
	DebugMode        bool
	LogDir           string

	AdminJWTSecret  string
	CleanupSchedule string
	OrphanMaxAge    time.Duration

	NotifySubmitter   bool
	NotifyAdminEmails []string
}

// DatabaseConfig holds the MySQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Charset  string
	DebugSQL bool
}

// UploadConfig controls where and how signature files are written.
type UploadConfig struct {
	Path                string
	MaxFileSize         int64
	AllowedFormats      []models.SignatureFormat
	DefaultFormat       models.SignatureFormat
	SaveMultipleFormats bool
}

// SMTPConfig is the outgoing mail relay.
type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

// DSN returns the go-sql-driver/mysql data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
		d.Charset,
	)
}

// IsAllowed reports whether format may be written.
func (u UploadConfig) IsAllowed(format models.SignatureFormat) bool {
	for _, allowed := range u.AllowedFormats {
		if allowed == format {
			return true
		}
	}
	return false
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads the configuration from environment variables. Unset keys take
// their defaults; malformed values are errors.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:        getEnvDefault("SERVER_PORT", "8080"),
		GinMode:     os.Getenv("GIN_MODE"),
		Environment: strings.ToLower(os.Getenv("ENVIRONMENT")),
		LogDir:      getEnvDefault("LOG_DIR", "logs"),
		Database: DatabaseConfig{
			Host:     getEnvDefault("DB_HOST", "localhost"),
			Port:     getEnvDefault("DB_PORT", "3306"),
			Database: os.Getenv("DB_DATABASE"),
			Username: os.Getenv("DB_USERNAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Charset:  getEnvDefault("DB_CHARSET", "utf8mb4"),
		},
		Upload: UploadConfig{
			Path: getEnvDefault("UPLOAD_PATH", "uploads/signatures"),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: os.Getenv("SMTP_FROM"),
		},
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
		CleanupSchedule: getEnvDefault("CLEANUP_SCHEDULE", "@every 1h"),
	}

	var err error

	if cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS")); len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if cfg.Database.DebugSQL, err = getEnvBool("DEBUG_SQL", false); err != nil {
		return nil, err
	}

	if cfg.Upload.MaxFileSize, err = getEnvInt64("MAX_FILE_SIZE", 5*1024*1024); err != nil {
		return nil, err
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE: must be positive, got %d", cfg.Upload.MaxFileSize)
	}

	if cfg.Upload.AllowedFormats, err = parseFormats(getEnvDefault("ALLOWED_FORMATS", "png,webp,svg")); err != nil {
		return nil, fmt.Errorf("ALLOWED_FORMATS: %w", err)
	}

	defaultFormat, ok := models.ParseSignatureFormat(getEnvDefault("DEFAULT_FORMAT", "png"))
	if !ok {
		return nil, fmt.Errorf("DEFAULT_FORMAT: unknown format %q", os.Getenv("DEFAULT_FORMAT"))
	}
	if !cfg.Upload.IsAllowed(defaultFormat) {
		return nil, fmt.Errorf("DEFAULT_FORMAT: %q is not in ALLOWED_FORMATS", defaultFormat)
	}
	cfg.Upload.DefaultFormat = defaultFormat

	if cfg.Upload.SaveMultipleFormats, err = getEnvBool("SAVE_MULTIPLE_FORMATS", false); err != nil {
		return nil, err
	}
	if cfg.RequireSignature, err = getEnvBool("REQUIRE_SIGNATURE", true); err != nil {
		return nil, err
	}
	if cfg.LogSubmissions, err = getEnvBool("LOG_SUBMISSIONS", true); err != nil {
		return nil, err
	}
	if cfg.DebugMode, err = getEnvBool("DEBUG_MODE", false); err != nil {
		return nil, err
	}

	if cfg.OrphanMaxAge, err = getEnvDuration("ORPHAN_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}

	smtpPort, err := getEnvInt64("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTP.Port = int(smtpPort)
	cfg.SMTP.SkipTLSVerify = os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1"

	if cfg.NotifySubmitter, err = getEnvBool("NOTIFY_SUBMITTER", false); err != nil {
		return nil, err
	}
	cfg.NotifyAdminEmails = splitList(os.Getenv("NOTIFY_ADMIN_EMAILS"))

	return cfg, nil
}

func parseFormats(raw string) ([]models.SignatureFormat, error) {
	var formats []models.SignatureFormat
	seen := make(map[models.SignatureFormat]bool)
	for _, name := range splitList(raw) {
		format, ok := models.ParseSignatureFormat(name)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", name)
		}
		if seen[format] {
			continue
		}
		seen[format] = true
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("at least one format is required")
	}
	return formats, nil
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func getEnvDefault(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, val)
	}
	return b, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, val)
	}
	return d, nil
}
