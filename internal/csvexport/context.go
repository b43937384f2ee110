package csvexport

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DateLayout renders call start times as yyyy-MM-dd HH:mm:ss.
const DateLayout = "2006-01-02 15:04:05"

// buddhistEraOffset is the distance between the Buddhist and Gregorian eras.
const buddhistEraOffset = 543

// FormatContext carries the timezone and locale used for the Date column.
// Both are normally taken from the process environment once at startup and
// then injected, so tests can pin them.
type FormatContext struct {
	Location *time.Location
	Locale   language.Tag
}

// DefaultContext mirrors the process defaults: local timezone and the locale
// named by LC_ALL, LC_TIME or LANG.
func DefaultContext() FormatContext {
	return FormatContext{
		Location: time.Local,
		Locale:   LocaleFromEnv(),
	}
}

// LocaleFromEnv resolves the POSIX locale variables in precedence order.
// Unset, unparsable, "C" and "POSIX" locales yield language.Und.
func LocaleFromEnv() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		tag, err := ParseLocale(v)
		if err != nil {
			return language.Und
		}
		return tag
	}
	return language.Und
}

// ParseLocale accepts either a BCP 47 tag ("th-TH-u-ca-buddhist") or a POSIX
// locale name ("th_TH.UTF-8", "de_DE@euro").
func ParseLocale(s string) (language.Tag, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	switch s {
	case "", "C", "POSIX":
		return language.Und, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", s, err)
	}
	return tag, nil
}

// FormatTime renders a millisecond epoch timestamp in the context's timezone.
// Locales whose default calendar counts years in the Buddhist era get the
// shifted year, the rest of the layout is unchanged.
func (c FormatContext) FormatTime(ms int64) string {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(ms).In(loc)
	if c.buddhistEra() {
		return fmt.Sprintf("%04d", t.Year()+buddhistEraOffset) + t.Format(DateLayout[4:])
	}
	return t.Format(DateLayout)
}

func (c FormatContext) buddhistEra() bool {
	if ca := c.Locale.TypeForKey("ca"); ca != "" {
		return ca == "buddhist"
	}
	base, _ := c.Locale.Base()
	region, conf := c.Locale.Region()
	return base.String() == "th" && region.String() == "TH" && conf == language.Exact
}
