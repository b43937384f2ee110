package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dharsanguruparan/CallLogCSV/internal/csvexport"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CALLLOG_CONFIG_FILE", "CALLLOG_ADDRESS", "CALLLOG_DATABASE_URL", "CALLLOG_REDIS_ADDR",
		"CALLLOG_REDIS_DB", "CALLLOG_EXPORT_BUCKET", "CALLLOG_SIGNING_SECRET", "CALLLOG_SIGNED_TTL",
		"CALLLOG_WORKERS", "CALLLOG_TIMEZONE", "CALLLOG_LOCALE", "CALLLOG_CSV_QUOTE", "CALLLOG_FILE_NAME",
		"CALLLOG_S3_USE_SSL", "CALLLOG_QUEUE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, "call-log-exports", cfg.ExportBucket)
	assert.Equal(t, 5*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "none", cfg.Quote)
	assert.Equal(t, "call_log.csv", cfg.FileName)
	assert.False(t, cfg.InProcess())
	assert.Len(t, cfg.SigningSecret, 32)
	assert.ErrorIs(t, cfg.RequireDatabase(), ErrNoDatabase)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALLLOG_ADDRESS", ":9090")
	t.Setenv("CALLLOG_DATABASE_URL", "postgres://calls:calls@db:5432/calls")
	t.Setenv("CALLLOG_SIGNING_SECRET", "topsecret")
	t.Setenv("CALLLOG_SIGNED_TTL", "90s")
	t.Setenv("CALLLOG_WORKERS", "4")
	t.Setenv("CALLLOG_CSV_QUOTE", "RFC4180")
	t.Setenv("CALLLOG_S3_USE_SSL", "true")
	t.Setenv("CALLLOG_QUEUE", "InProcess")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, []byte("topsecret"), cfg.SigningSecret)
	assert.Equal(t, 90*time.Second, cfg.SignedURLTTL)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "rfc4180", cfg.Quote)
	assert.True(t, cfg.S3UseSSL)
	assert.True(t, cfg.InProcess())
	assert.NoError(t, cfg.RequireDatabase())

	mode, err := cfg.QuoteMode()
	require.NoError(t, err)
	assert.Equal(t, csvexport.QuoteRFC4180, mode)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "calllog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: ":7070"
workers: 3
s3:
  bucket: phone-dumps
export:
  timezone: Asia/Bangkok
  locale: th_TH.UTF-8
  file_name: calls.csv
signed_ttl: 2m
`), 0o600))
	t.Setenv("CALLLOG_CONFIG_FILE", path)
	t.Setenv("CALLLOG_WORKERS", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Address)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "phone-dumps", cfg.ExportBucket)
	assert.Equal(t, "calls.csv", cfg.FileName)
	assert.Equal(t, 2*time.Minute, cfg.SignedURLTTL)

	fctx, err := cfg.FormatContext()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", fctx.Location.String())
	assert.Equal(t, language.MustParse("th-TH"), fctx.Locale)
	assert.Equal(t, "2567-03-01 21:32:05", fctx.FormatTime(1709303525000))
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Quote", key: "CALLLOG_CSV_QUOTE", value: "tsv"},
		{name: "Workers", key: "CALLLOG_WORKERS", value: "0"},
		{name: "FileName", key: "CALLLOG_FILE_NAME", value: "calls.txt"},
		{name: "RedisDB", key: "CALLLOG_REDIS_DB", value: "99"},
		{name: "Queue", key: "CALLLOG_QUEUE", value: "kafka"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALLLOG_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1"), 0o600))
	t.Setenv("CALLLOG_CONFIG_FILE", path)
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestFormatContext_Errors(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus"}
	_, err := cfg.FormatContext()
	assert.Error(t, err)

	cfg = &Config{Locale: "!!"}
	_, err = cfg.FormatContext()
	assert.Error(t, err)

	cfg = &Config{Quote: "none", Timezone: "UTC"}
	f, err := cfg.Formatter()
	require.NoError(t, err)
	assert.NotNil(t, f)
}
