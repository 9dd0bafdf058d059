// Package format renders dates, counts and relative times for templates in
// the visitor's language.
package format

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/message"

	"kabaranime.id/portal/internal/i18n"
)

var months = map[i18n.Language][12]string{
	i18n.Indonesian: {"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"},
	i18n.English:    {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

// FmtDate formats t as a long date: "12 September 2025" or "September 12, 2025".
func FmtDate(t time.Time, lang i18n.Language) string {
	if t.IsZero() {
		return ""
	}
	switch lang {
	case i18n.English:
		return fmt.Sprintf("%s %d, %d", months[lang][t.Month()-1], t.Day(), t.Year())
	default:
		return fmt.Sprintf("%d %s %d", t.Day(), months[i18n.Indonesian][t.Month()-1], t.Year())
	}
}

// FmtNumber groups digits the way lang does: 12.345 or 12,345.
func FmtNumber(n int, lang i18n.Language) string {
	return message.NewPrinter(lang.Tag()).Sprintf("%d", n)
}

// FmtCompact shortens large counts: 1,2 rb / 1.2K, 3,4 jt / 3.4M.
func FmtCompact(n int, lang i18n.Language) string {
	abs := math.Abs(float64(n))
	var (
		v      float64
		suffix string
	)
	switch {
	case abs >= 1_000_000:
		v = float64(n) / 1_000_000
		suffix = map[i18n.Language]string{i18n.Indonesian: " jt", i18n.English: "M"}[lang]
	case abs >= 1_000:
		v = float64(n) / 1_000
		suffix = map[i18n.Language]string{i18n.Indonesian: " rb", i18n.English: "K"}[lang]
	default:
		return FmtNumber(n, lang)
	}
	v = math.Floor(v*10) / 10
	p := message.NewPrinter(lang.Tag())
	if v == math.Trunc(v) {
		return p.Sprintf("%.0f", v) + suffix
	}
	return p.Sprintf("%.1f", v) + suffix
}

type unit struct {
	d      time.Duration
	id, en string
}

var units = []unit{
	{d: 365 * 24 * time.Hour, id: "tahun", en: "year"},
	{d: 30 * 24 * time.Hour, id: "bulan", en: "month"},
	{d: 7 * 24 * time.Hour, id: "minggu", en: "week"},
	{d: 24 * time.Hour, id: "hari", en: "day"},
	{d: time.Hour, id: "jam", en: "hour"},
	{d: time.Minute, id: "menit", en: "minute"},
}

// FmtRelative describes how long ago t was relative to now.
func FmtRelative(t, now time.Time, lang i18n.Language) string {
	ago := now.Sub(t)
	if ago < time.Minute {
		if lang == i18n.English {
			return "just now"
		}
		return "baru saja"
	}
	for _, u := range units {
		if ago < u.d {
			continue
		}
		n := int(ago / u.d)
		if lang == i18n.English {
			if n == 1 {
				return fmt.Sprintf("1 %s ago", u.en)
			}
			return fmt.Sprintf("%d %ss ago", n, u.en)
		}
		return fmt.Sprintf("%d %s yang lalu", n, u.id)
	}
	return FmtDate(t, lang)
}

// ISODate is the machine-readable form for <time datetime>.
func ISODate(t time.Time) string { return t.UTC().Format(time.RFC3339) }
