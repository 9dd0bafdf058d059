package inbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kabaranime.id/portal/internal/i18n"
)

func sampleFeed() *Feed {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return NewFeed([]Item{
		{ID: "n1", Kind: KindSystem, Title: map[i18n.Language]string{i18n.Indonesian: "Selamat datang", i18n.English: "Welcome"}, CreatedAt: base},
		{ID: "n2", Kind: KindNewArticle, Title: map[i18n.Language]string{i18n.Indonesian: "Artikel baru"}, CreatedAt: base.Add(time.Hour)},
		{ID: "n3", Kind: KindCommentReply, Title: map[i18n.Language]string{i18n.English: "Reply"}, CreatedAt: base.Add(2 * time.Hour)},
	})
}

func TestListNewestFirstAndLocalized(t *testing.T) {
	in := New(sampleFeed())
	list := in.List(i18n.English, FilterAll)
	require.Len(t, list, 3)
	require.Equal(t, "n3", list[0].ID)
	require.Equal(t, "Artikel baru", list[1].Title)
	require.Equal(t, "Welcome", list[2].Title)
	require.Equal(t, "Reply", in.List(i18n.Indonesian, FilterAll)[0].Title)
}

func TestMarkRead(t *testing.T) {
	in := New(sampleFeed())
	require.Equal(t, 3, in.Unread())

	require.NoError(t, in.MarkRead("n2"))
	require.Equal(t, 2, in.Unread())
	require.Len(t, in.List(i18n.English, FilterUnread), 2)
	require.ErrorIs(t, in.MarkRead("missing"), ErrNotFound)

	require.Equal(t, 2, in.MarkAllRead())
	require.Zero(t, in.Unread())
	require.Empty(t, in.List(i18n.English, FilterUnread))
	require.Zero(t, in.MarkAllRead())
}

func TestVisitorsAreIndependent(t *testing.T) {
	feed := sampleFeed()
	a, b := New(feed), New(feed)
	a.MarkAllRead()
	require.Equal(t, 3, b.Unread())
}

func TestLoadFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.yaml")
	doc := "notifications:\n  - id: x\n    kind: system\n    title:\n      id: Halo\n      en: Hello\n    link: /about\n    created_at: 2025-01-01T00:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	feed, err := LoadFeed(path)
	require.NoError(t, err)
	list := New(feed).List(i18n.English, ParseFilter("bogus"))
	require.Len(t, list, 1)
	require.Equal(t, "Hello", list[0].Title)
	require.Equal(t, "/about", list[0].Link)
}
