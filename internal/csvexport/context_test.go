package csvexport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const sampleMillis = 1709303525000 // 2024-03-01 14:32:05 UTC

func TestFormatTime_Calendars(t *testing.T) {
	testCases := []struct {
		name     string
		locale   string
		expected string
	}{
		{name: "English", locale: "en-US", expected: "2024-03-01 14:32:05"},
		{name: "Undetermined", locale: "und", expected: "2024-03-01 14:32:05"},
		{name: "ThaiThailand", locale: "th-TH", expected: "2567-03-01 14:32:05"},
		{name: "ThaiWithoutRegion", locale: "th", expected: "2024-03-01 14:32:05"},
		{name: "ThaiGregorianOverride", locale: "th-TH-u-ca-gregory", expected: "2024-03-01 14:32:05"},
		{name: "ExplicitBuddhist", locale: "en-US-u-ca-buddhist", expected: "2567-03-01 14:32:05"},
		{name: "German", locale: "de-DE", expected: "2024-03-01 14:32:05"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := FormatContext{Location: time.UTC, Locale: language.MustParse(tc.locale)}
			assert.Equal(t, tc.expected, ctx.FormatTime(sampleMillis))
		})
	}
}

func TestFormatTime_NilLocationUsesLocal(t *testing.T) {
	ctx := FormatContext{}
	assert.Equal(t, time.UnixMilli(sampleMillis).In(time.Local).Format(DateLayout), ctx.FormatTime(sampleMillis))
}

func TestParseLocale(t *testing.T) {
	testCases := []struct {
		in       string
		expected language.Tag
	}{
		{in: "th_TH.UTF-8", expected: language.MustParse("th-TH")},
		{in: "de_DE@euro", expected: language.MustParse("de-DE")},
		{in: "en-GB", expected: language.MustParse("en-GB")},
		{in: "C", expected: language.Und},
		{in: "POSIX", expected: language.Und},
		{in: "", expected: language.Und},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			tag, err := ParseLocale(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tag)
		})
	}

	_, err := ParseLocale("!!not a locale")
	assert.Error(t, err)
}

func TestLocaleFromEnv(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_TIME", "th_TH.UTF-8")
	t.Setenv("LANG", "en_US.UTF-8")
	assert.Equal(t, language.MustParse("th-TH"), LocaleFromEnv())

	t.Setenv("LC_ALL", "de_DE.UTF-8")
	assert.Equal(t, language.MustParse("de-DE"), LocaleFromEnv())

	t.Setenv("LC_ALL", "")
	t.Setenv("LC_TIME", "")
	t.Setenv("LANG", "")
	assert.Equal(t, language.Und, LocaleFromEnv())

	ctx := DefaultContext()
	assert.Equal(t, time.Local, ctx.Location)
	assert.Equal(t, language.Und, ctx.Locale)
}
