package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "dup@example.com")
	f.catalog.AddMovie(550, "Fight Club", 139)

	m, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 550, Type: model.MediaTypeMovie})
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusPlanned, m.WatchStatus)
	assert.Equal(t, 139, m.WatchTimeMinutes)
	assert.Equal(t, "Fight Club", m.Title)

	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 550, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
	assert.ErrorIs(t, err, ErrDuplicate)

	// 其他用户可以添加同一条目
	other := f.verifiedUser(t, "other@example.com")
	_, err = f.watchlist.Add(ctx, other.ID, AddInput{CatalogID: 550, Type: model.MediaTypeMovie})
	assert.NoError(t, err)
}

func TestAddEstimatesShowWatchTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "tv@example.com")
	f.catalog.AddShow(1399, "Thrones", 1, 50, 50, 50, 50)

	m, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 1399, Type: model.MediaTypeTV, Status: model.WatchStatusWatching})
	require.NoError(t, err)
	assert.Equal(t, 4*model.DefaultEpisodeRuntime, m.WatchTimeMinutes)
	assert.Equal(t, model.WatchStatusWatching, m.WatchStatus)
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var vErr *ValidationError
	_, err := f.watchlist.Add(ctx, 1, AddInput{CatalogID: 1, Type: "person"})
	assert.ErrorAs(t, err, &vErr)
	_, err = f.watchlist.Add(ctx, 1, AddInput{CatalogID: 0, Type: model.MediaTypeMovie})
	assert.ErrorAs(t, err, &vErr)
	_, err = f.watchlist.Add(ctx, 1, AddInput{CatalogID: 1, Type: model.MediaTypeMovie, Status: "dropped"})
	assert.ErrorAs(t, err, &vErr)
}

func TestAddSurfacesCatalogFailure(t *testing.T) {
	f := newFixture(t)
	f.catalog.Down = true
	f.catalog.DownErr = fmt.Errorf("%w: boom", ErrCatalogUnavailable)

	_, err := f.watchlist.Add(context.Background(), 1, AddInput{CatalogID: 42, Type: model.MediaTypeMovie})
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestUpdateStatusRatingBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "rate@example.com")
	f.catalog.AddMovie(1, "Movie", 100)
	m, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 1, Type: model.MediaTypeMovie})
	require.NoError(t, err)

	for _, bad := range []int{0, 6, -1} {
		_, err := f.watchlist.UpdateStatus(ctx, user.ID, m.ID, UpdateInput{Rating: intPtr(bad)})
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "rating %d", bad)
	}

	updated, err := f.watchlist.UpdateStatus(ctx, user.ID, m.ID, UpdateInput{
		Status: statusPtr(model.WatchStatusCompleted),
		Rating: intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusCompleted, updated.WatchStatus)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 5, *updated.Rating)

	_, err = f.watchlist.UpdateStatus(ctx, user.ID, m.ID, UpdateInput{Status: statusPtr("dropped")})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.watchlist.UpdateStatus(ctx, user.ID, m.ID, UpdateInput{})
	assert.ErrorAs(t, err, &vErr)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.verifiedUser(t, "owner@example.com")
	intruder := f.verifiedUser(t, "intruder@example.com")
	f.catalog.AddMovie(1, "Movie", 100)

	m, err := f.watchlist.Add(ctx, owner.ID, AddInput{CatalogID: 1, Type: model.MediaTypeMovie})
	require.NoError(t, err)

	_, err = f.watchlist.Get(ctx, intruder.ID, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.watchlist.UpdateStatus(ctx, intruder.ID, m.ID, UpdateInput{Rating: intPtr(3)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.watchlist.Remove(ctx, intruder.ID, m.ID), ErrNotFound)

	still, err := f.watchlist.Get(ctx, owner.ID, m.ID)
	require.NoError(t, err)
	assert.Nil(t, still.Rating)
}

func TestRemoveShowDeletesEpisodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "rm@example.com")
	f.catalog.AddShow(7, "Show", 1, 30, 30)

	show, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 7, Type: model.MediaTypeTV})
	require.NoError(t, err)
	_, err = f.episodes.FetchSeason(ctx, user.ID, 7, 1)
	require.NoError(t, err)

	require.NoError(t, f.watchlist.Remove(ctx, user.ID, show.ID))

	rows, err := f.episodes.ListShow(ctx, user.ID, 7)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.watchlist.Get(ctx, user.ID, show.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "list@example.com")
	f.catalog.AddMovie(1, "A", 100)
	f.catalog.AddMovie(2, "B", 90)
	f.catalog.AddMovie(3, "C", 80)

	_, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 1, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
	require.NoError(t, err)
	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 2, Type: model.MediaTypeMovie, Status: model.WatchStatusCompleted})
	require.NoError(t, err)
	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 3, Type: model.MediaTypeMovie})
	require.NoError(t, err)

	page, err := f.watchlist.List(ctx, user.ID, ListInput{Status: model.WatchStatusCompleted, Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 190, page.TotalWatchTimeMinutes)
	assert.Equal(t, "3h 10m", page.TotalWatchTime)

	page, err = f.watchlist.List(ctx, user.ID, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)

	empty, err := f.watchlist.List(ctx, 999, ListInput{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.Total)

	_, err = f.watchlist.List(ctx, user.ID, ListInput{Status: "dropped"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestDetailsIncludesWatchlistEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "details@example.com")
	f.catalog.AddMovie(9, "Nine", 99)

	res, err := f.watchlist.Details(ctx, user.ID, model.MediaTypeMovie, 9)
	require.NoError(t, err)
	assert.Equal(t, "Nine", res.Item.Title)
	assert.Nil(t, res.Entry)

	_, err = f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 9, Type: model.MediaTypeMovie})
	require.NoError(t, err)

	res, err = f.watchlist.Details(ctx, user.ID, model.MediaTypeMovie, 9)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.Equal(t, 9, res.Entry.CatalogID)

	_, err = f.watchlist.Search(ctx, "  ", 1)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	found, err := f.watchlist.Search(ctx, "nin", 1)
	require.NoError(t, err)
	assert.Len(t, found.Results, 1)
}
