package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsForEmptyUser(t *testing.T) {
	f := newFixture(t)
	user := f.verifiedUser(t, "empty@example.com")

	stats, err := f.stats.Compute(context.Background(), user.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Zero(t, stats.ByStatus.Completed)
	assert.Equal(t, "0h 0m", stats.WatchTime.Total)
	assert.Equal(t, "0h 0m", stats.Episodes.WatchedTime)
}

func TestStatsCountsCompletedTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "stats@example.com")
	f.catalog.AddMovie(1, "Long", 150)
	f.catalog.AddMovie(2, "Short", 90)
	f.catalog.AddShow(3, "Show", 1, 30, 40)

	_, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 1, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
	require.NoError(t, err)
	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 2, Type: model.MediaTypeMovie})
	require.NoError(t, err)
	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 3, Type: model.MediaTypeTV})
	require.NoError(t, err)

	rows, err := f.episodes.FetchSeason(ctx, user.ID, 3, 1)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := f.episodes.UpdateStatus(ctx, user.ID, r.ID, EpisodeUpdateInput{Status: episodeStatusPtr(model.EpisodeStatusWatched)})
		require.NoError(t, err)
	}

	stats, err := f.stats.Compute(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalItems)
	assert.Equal(t, int64(2), stats.ByType.Movie)
	assert.Equal(t, int64(1), stats.ByType.TV)
	assert.Equal(t, int64(2), stats.ByStatus.Completed)
	assert.Equal(t, int64(1), stats.ByStatus.Planned)
	assert.Equal(t, int64(150), stats.WatchTime.MovieMinutes)
	assert.Equal(t, int64(70), stats.WatchTime.TVMinutes)
	assert.Equal(t, "3h 40m", stats.WatchTime.Total)
	assert.Equal(t, int64(2), stats.Episodes.Watched)
	assert.Equal(t, int64(70), stats.Episodes.WatchedMinutes)
}

func TestRangeStart(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	since, err := RangeStart(RangeWeek, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), *since)

	since, err = RangeStart(RangeYear, now)
	require.NoError(t, err)
	assert.Equal(t, 2023, since.Year())

	for _, all := range []string{RangeAll, ""} {
		since, err = RangeStart(all, now)
		require.NoError(t, err)
		assert.Nil(t, since)
	}

	_, err = RangeStart("decade", now)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestRenderReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "report@example.com")
	f.catalog.AddMovie(1, "Amélie", 122)
	f.catalog.AddShow(2, "Show", 1, 30, 30, 30)

	_, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 1, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
	require.NoError(t, err)
	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 2, Type: model.MediaTypeTV})
	require.NoError(t, err)
	rows, err := f.episodes.FetchSeason(ctx, user.ID, 2, 1)
	require.NoError(t, err)
	_, err = f.episodes.UpdateStatus(ctx, user.ID, rows[1].ID, EpisodeUpdateInput{Status: episodeStatusPtr(model.EpisodeStatusWatched)})
	require.NoError(t, err)

	for _, rng := range []string{RangeWeek, RangeMonth, RangeYear, RangeAll} {
		report, err := f.reports.Render(ctx, user, rng)
		require.NoError(t, err, rng)
		assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF-")), rng)
		assert.True(t, strings.HasPrefix(report.Filename, "obscura-report-"+rng+"-"), report.Filename)
		assert.True(t, strings.HasSuffix(report.Filename, ".pdf"))
	}

	_, err = f.reports.Render(ctx, user, "forever")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestRenderReportManyRowsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "pages@example.com")

	for i := 1; i <= 80; i++ {
		f.catalog.AddMovie(i, strings.Repeat("Long Title ", 8), 100)
		_, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: i, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
		require.NoError(t, err)
	}

	report, err := f.reports.Render(ctx, user, RangeAll)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF-")))
	assert.Greater(t, bytes.Count(report.Data, []byte("/Type /Page\n")), 1)
}

func TestCP1252SafeText(t *testing.T) {
	assert.Equal(t, "Amélie – “Le Fabuleux” €5", cp1252Safe("Amélie – “Le Fabuleux” €5"))
	assert.Equal(t, "???? (2001)", cp1252Safe("千と千尋 (2001)"))
	assert.Equal(t, "a?b", cp1252Safe("a\xffb"))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 9)
	pw := &pdfWriter{pdf: pdf, tr: cp1252Translator(pdf)}

	out := pw.fit(strings.Repeat("千と千尋の神隠し", 10), 30)
	require.True(t, strings.HasSuffix(out, "..."), out)
	body := strings.TrimSuffix(out, "...")
	assert.NotEmpty(t, body)
	assert.Equal(t, strings.Repeat("?", len(body)), body)

	short := pw.fit("Amélie", 60)
	assert.Equal(t, 6, len(short), "é becomes one cp1252 byte")
}

func TestRenderReportWithCJKTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "cjk@example.com")
	f.catalog.AddMovie(129, strings.Repeat("千と千尋の神隠し", 8), 125)

	_, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 129, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
	require.NoError(t, err)

	report, err := f.reports.Render(ctx, user, RangeAll)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF-")))
}
