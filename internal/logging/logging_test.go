package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"loud":    zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Service: "calllogcsv", Writer: &buf})
	l.Debug().Str("sink", "stdout").Msg("export written")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "export written", line["message"])
	assert.Equal(t, "calllogcsv", line["service"])
	assert.Equal(t, "stdout", line["sink"])
	assert.Equal(t, "debug", line["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "error", Format: "json", Writer: &buf})
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_SERVICE", "worker")
	opt := FromEnv()
	assert.Equal(t, "warn", opt.Level)
	assert.Equal(t, "json", opt.Format)
	assert.Equal(t, "worker", opt.Service)
}

func TestNamedAndNop(t *testing.T) {
	assert.NotNil(t, Named("api"))
	assert.Same(t, Get(), Named(""))
	Nop().Error().Msg("dropped")
}
