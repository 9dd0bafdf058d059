package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kabaranime.id/portal/internal/i18n"
)

func TestFmtDate(t *testing.T) {
	d := time.Date(2025, 9, 12, 8, 0, 0, 0, time.UTC)
	require.Equal(t, "12 September 2025", FmtDate(d, i18n.Indonesian))
	require.Equal(t, "September 12, 2025", FmtDate(d, i18n.English))
	require.Equal(t, "3 Mei 2025", FmtDate(time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC), i18n.Indonesian))
	require.Empty(t, FmtDate(time.Time{}, i18n.English))
}

func TestFmtNumber(t *testing.T) {
	require.Equal(t, "12.345", FmtNumber(12345, i18n.Indonesian))
	require.Equal(t, "12,345", FmtNumber(12345, i18n.English))
	require.Equal(t, "999", FmtNumber(999, i18n.English))
}

func TestFmtCompact(t *testing.T) {
	require.Equal(t, "1,2 rb", FmtCompact(1234, i18n.Indonesian))
	require.Equal(t, "1.2K", FmtCompact(1234, i18n.English))
	require.Equal(t, "3M", FmtCompact(3_000_000, i18n.English))
	require.Equal(t, "420", FmtCompact(420, i18n.Indonesian))
}

func TestFmtRelative(t *testing.T) {
	now := time.Date(2025, 9, 12, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "baru saja", FmtRelative(now.Add(-10*time.Second), now, i18n.Indonesian))
	require.Equal(t, "5 minutes ago", FmtRelative(now.Add(-5*time.Minute), now, i18n.English))
	require.Equal(t, "1 hour ago", FmtRelative(now.Add(-time.Hour), now, i18n.English))
	require.Equal(t, "3 hari yang lalu", FmtRelative(now.Add(-72*time.Hour), now, i18n.Indonesian))
	require.Equal(t, "2 weeks ago", FmtRelative(now.Add(-15*24*time.Hour), now, i18n.English))
}
