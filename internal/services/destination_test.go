package services

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vedablog/internal/data/repos/testutil"
	"github.com/yungbote/vedablog/internal/session"
)

func TestHomeSplitsFeatured(t *testing.T) {
	f := newServiceFixture(t, nil)
	testutil.SeedDestination(t, f.db, "lisbon", "Lisbon", false)
	testutil.SeedDestination(t, f.db, "kyoto", "Kyoto", true)

	home, err := f.destinations.Home(context.Background())
	require.NoError(t, err)
	require.Len(t, home.Featured, 1)
	require.Equal(t, "kyoto", home.Featured[0].Slug)
	require.Len(t, home.All, 2)
	require.Equal(t, "kyoto", home.All[0].Slug)
}

func TestListQueryPrecedenceAndPaging(t *testing.T) {
	f := newServiceFixture(t, nil)
	for _, s := range []string{"a", "b", "c"} {
		testutil.SeedDestination(t, f.db, "dest-"+s, "Dest "+strings.ToUpper(s), false)
	}
	ctx := context.Background()

	page, err := f.destinations.List(ctx, ListQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "dest-b", page[0].Slug)

	// q wins over continent and ignores paging
	rows, err := f.destinations.List(ctx, ListQuery{Q: "dest c", Continent: "Europe", Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "dest-c", rows[0].Slug)

	rows, err = f.destinations.List(ctx, ListQuery{Continent: "Asia"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, ListQuery{Limit: MaxListLimit}, ListQuery{Limit: 1000, Offset: -3}.Normalize())
	require.Equal(t, DefaultListLimit, ListQuery{}.Normalize().Limit)
}

func TestDetailUnknownSlugIsAbsent(t *testing.T) {
	f := newServiceFixture(t, nil)
	d, err := f.destinations.Detail(context.Background(), "atlantis", nil)
	require.NoError(t, err)
	require.Nil(t, d)

	sum, err := f.destinations.Summary(context.Background(), "atlantis")
	require.NoError(t, err)
	require.Nil(t, sum)
}

func TestDetailViewerState(t *testing.T) {
	f := newServiceFixture(t, nil)
	kyoto := testutil.SeedDestination(t, f.db, "kyoto", "Kyoto", true)
	ctx := context.Background()

	_, err := f.engagement.Rate(ctx, "user-a", kyoto.ID, 3)
	require.NoError(t, err)
	_, err = f.engagement.Rate(ctx, "user-b", kyoto.ID, 4)
	require.NoError(t, err)

	anon, err := f.destinations.Detail(ctx, "kyoto", nil)
	require.NoError(t, err)
	require.Nil(t, anon.UserRating)
	require.EqualValues(t, 2, anon.Ratings.Count)
	require.InDelta(t, 3.5, anon.Ratings.Average, 0.001)

	mine, err := f.destinations.Detail(ctx, "kyoto", &session.Principal{Subject: "user-a"})
	require.NoError(t, err)
	require.NotNil(t, mine.UserRating)
	require.Equal(t, 3, mine.UserRating.Rating)
}

func TestLegacyContentExtraction(t *testing.T) {
	page := `<html><head><title>x</title></head>
<body class="page">
<nav class="top"><a href="/">Home</a></nav>
<div class="nav-bar"><a href="/">Back</a></div>
<section><h1>Kyoto</h1><p>Temples.</p></section>
</body></html>`
	legacy := newLegacyContentFS(fstest.MapFS{
		"kyoto-page.html": &fstest.MapFile{Data: []byte(page)},
	})

	body, err := legacy.Load("kyoto")
	require.NoError(t, err)
	require.Equal(t, "<section><h1>Kyoto</h1><p>Temples.</p></section>", body)

	body, err = legacy.Load("lisbon")
	require.NoError(t, err)
	require.Empty(t, body)

	body, err = legacy.Load("../etc/passwd")
	require.NoError(t, err)
	require.Empty(t, body)

	require.Nil(t, NewLegacyContent(""))
}

func TestDetailEmbedsLegacyContent(t *testing.T) {
	legacy := newLegacyContentFS(fstest.MapFS{
		"kyoto-page.html": &fstest.MapFile{Data: []byte("<body><p>Old page</p></body>")},
	})
	f := newServiceFixture(t, legacy)
	testutil.SeedDestination(t, f.db, "kyoto", "Kyoto", false)

	d, err := f.destinations.Detail(context.Background(), "kyoto", nil)
	require.NoError(t, err)
	require.Equal(t, "<p>Old page</p>", d.LegacyContent)
}
