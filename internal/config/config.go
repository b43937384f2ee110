// Package config centralizes how CallLogCSV reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dharsanguruparan/CallLogCSV/internal/csvexport"
)

// Config represents runtime configuration shared by the CLI, the API and the
// worker. Struct fields in Go begin with capital letters when they must be
// exported (visible to other packages), while lower-case fields remain private.
type Config struct {
	Address        string `validate:"required"`
	DatabaseURL    string
	RedisAddr      string `validate:"required"`
	RedisPassword  string
	RedisDB        int    `validate:"gte=0,lte=15"`
	QueueBackend   string `validate:"oneof=redis inprocess"`
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Region       string
	S3UseSSL       bool
	ExportBucket   string        `validate:"required"`
	SigningSecret  []byte        `validate:"required"`
	SignedURLTTL   time.Duration `validate:"gt=0"`
	Workers        int           `validate:"gte=1,lte=64"`
	MaxIngestBytes int64         `validate:"gt=0"`
	Timezone       string
	Locale         string
	Quote          string `validate:"oneof=none rfc4180 strict"`
	FileName       string `validate:"required,endswith=.csv"`
}

// fileConfig is the optional YAML layer named by CALLLOG_CONFIG_FILE. Values
// set there replace the built-in defaults; environment variables still win.
type fileConfig struct {
	Address     string `yaml:"address"`
	DatabaseURL string `yaml:"database_url"`
	Redis       struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	S3 struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Region    string `yaml:"region"`
		UseSSL    bool   `yaml:"use_ssl"`
		Bucket    string `yaml:"bucket"`
	} `yaml:"s3"`
	Queue     string `yaml:"queue"`
	SignedTTL string `yaml:"signed_ttl"`
	Workers   int    `yaml:"workers"`
	Export    struct {
		Timezone string `yaml:"timezone"`
		Locale   string `yaml:"locale"`
		Quote    string `yaml:"quote"`
		FileName string `yaml:"file_name"`
	} `yaml:"export"`
}

const (
	// const declares compile-time constants; shifts work on integers so
	// 8 << 20 equals 8 * 2^20 bytes.
	defaultAddress     = ":8080"
	defaultRedisAddr   = "localhost:6379"
	defaultS3Endpoint  = "localhost:9000"
	defaultS3Region    = "us-east-1"
	defaultBucket      = "call-log-exports"
	defaultSignedTTL   = 5 * time.Minute
	defaultWorkerCount = 2
	defaultMaxIngest   = 8 << 20 // 8 MiB
	defaultQueue       = "redis"
	defaultQuote       = "none"
	defaultFileName    = "call_log.csv"
)

// ErrNoDatabase is returned by RequireDatabase when no DSN is configured.
var ErrNoDatabase = errors.New("CALLLOG_DATABASE_URL is not set")

// Load reads configuration from the optional YAML file and environment
// variables, falling back to defaults. It follows Go's convention of returning
// (value, error) so callers can handle failures rather than panicking.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("CALLLOG_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Address:        readEnv("CALLLOG_ADDRESS", or(file.Address, defaultAddress)),
		DatabaseURL:    readEnv("CALLLOG_DATABASE_URL", file.DatabaseURL),
		RedisAddr:      readEnv("CALLLOG_REDIS_ADDR", or(file.Redis.Addr, defaultRedisAddr)),
		RedisPassword:  readEnv("CALLLOG_REDIS_PASSWORD", file.Redis.Password),
		RedisDB:        parseInt("CALLLOG_REDIS_DB", file.Redis.DB),
		QueueBackend:   strings.ToLower(readEnv("CALLLOG_QUEUE", or(file.Queue, defaultQueue))),
		S3Endpoint:     readEnv("CALLLOG_S3_ENDPOINT", or(file.S3.Endpoint, defaultS3Endpoint)),
		S3AccessKey:    readEnv("CALLLOG_S3_ACCESS_KEY", file.S3.AccessKey),
		S3SecretKey:    readEnv("CALLLOG_S3_SECRET_KEY", file.S3.SecretKey),
		S3Region:       readEnv("CALLLOG_S3_REGION", or(file.S3.Region, defaultS3Region)),
		S3UseSSL:       parseBool("CALLLOG_S3_USE_SSL", file.S3.UseSSL),
		ExportBucket:   readEnv("CALLLOG_EXPORT_BUCKET", or(file.S3.Bucket, defaultBucket)),
		SigningSecret:  parseSecret("CALLLOG_SIGNING_SECRET"),
		SignedURLTTL:   parseDuration("CALLLOG_SIGNED_TTL", fileDuration(file.SignedTTL, defaultSignedTTL)),
		Workers:        parseInt("CALLLOG_WORKERS", orInt(file.Workers, defaultWorkerCount)),
		MaxIngestBytes: parseInt64("CALLLOG_MAX_INGEST_BYTES", defaultMaxIngest),
		Timezone:       readEnv("CALLLOG_TIMEZONE", file.Export.Timezone),
		Locale:         readEnv("CALLLOG_LOCALE", file.Export.Locale),
		Quote:          strings.ToLower(readEnv("CALLLOG_CSV_QUOTE", or(file.Export.Quote, defaultQuote))),
		FileName:       readEnv("CALLLOG_FILE_NAME", or(file.Export.FileName, defaultFileName)),
	}
	if cfg.SigningSecret == nil {
		// If no secret was supplied we generate one using crypto/rand.
		cfg.SigningSecret = randomSecret()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags above.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// InProcess reports whether the API should run exports on its own goroutine
// pool instead of handing them to Redis.
func (c *Config) InProcess() bool { return c.QueueBackend == "inprocess" }

// RequireDatabase reports ErrNoDatabase for binaries that cannot run without
// PostgreSQL.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrNoDatabase
	}
	return nil
}

// FormatContext resolves the configured timezone and locale. Empty values fall
// back to the process defaults.
func (c *Config) FormatContext() (csvexport.FormatContext, error) {
	ctx := csvexport.DefaultContext()
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return ctx, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
		}
		ctx.Location = loc
	}
	if c.Locale != "" {
		tag, err := csvexport.ParseLocale(c.Locale)
		if err != nil {
			return ctx, err
		}
		ctx.Locale = tag
	}
	return ctx, nil
}

// QuoteMode parses the configured quoting mode.
func (c *Config) QuoteMode() (csvexport.QuoteMode, error) {
	return csvexport.ParseQuoteMode(c.Quote)
}

// Formatter builds the CSV formatter described by the configuration.
func (c *Config) Formatter() (*csvexport.Formatter, error) {
	fctx, err := c.FormatContext()
	if err != nil {
		return nil, err
	}
	mode, err := c.QuoteMode()
	if err != nil {
		return nil, err
	}
	return csvexport.New(fctx, csvexport.WithQuoteMode(mode)), nil
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

func readEnv(key, def string) string {
	// LookupEnv returns (value, true) when the variable is present, mirroring
	// Go's pattern of providing extra information via multiple return values.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	// strconv.ParseInt converts strings to integers; invalid input falls back
	// to the default and is then caught by Validate if the default is unusable.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func fileDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	// crypto/rand.Read fills a byte slice with secure random data.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
