package service

import (
	"context"
	"testing"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eps(statuses ...model.EpisodeStatus) []*model.Episode {
	out := make([]*model.Episode, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, &model.Episode{EpisodeNumber: i + 1, Runtime: 40 + i*10, Status: s})
	}
	return out
}

func TestReconcileTable(t *testing.T) {
	W, U, S := model.EpisodeStatusWatched, model.EpisodeStatusUnwatched, model.EpisodeStatusSkipped

	tests := []struct {
		name     string
		episodes []*model.Episode
		status   model.WatchStatus
		minutes  int
	}{
		{"no episodes is planned", nil, model.WatchStatusPlanned, 0},
		{"none watched", eps(U, U), model.WatchStatusPlanned, 0},
		{"skipped only", eps(S, S), model.WatchStatusPlanned, 0},
		{"some watched", eps(W, U, U), model.WatchStatusWatching, 40},
		{"watched and skipped", eps(W, S), model.WatchStatusWatching, 40},
		{"all watched", eps(W, W, W), model.WatchStatusCompleted, 40 + 50 + 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reconcile(tt.episodes)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.minutes, r.WatchTimeMinutes)
			assert.Equal(t, len(tt.episodes), r.Total)
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	in := eps(model.EpisodeStatusWatched, model.EpisodeStatusUnwatched)
	first := Reconcile(in)
	second := Reconcile(in)
	assert.Equal(t, first, second)

	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "idem@example.com")
	f.catalog.AddShow(100, "Show", 1, 45, 50)

	_, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 100, Type: model.MediaTypeTV})
	require.NoError(t, err)
	rows, err := f.episodes.FetchSeason(ctx, user.ID, 100, 1)
	require.NoError(t, err)
	_, err = f.episodes.UpdateStatus(ctx, user.ID, rows[0].ID, EpisodeUpdateInput{Status: episodeStatusPtr(model.EpisodeStatusWatched)})
	require.NoError(t, err)

	reconciler := NewReconciler(f.repos.Episode, f.repos.Media, nil)
	a, err := reconciler.ReconcileShow(ctx, user.ID, 100)
	require.NoError(t, err)
	b, err := reconciler.ReconcileShow(ctx, user.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	m, err := f.repos.Media.GetByCatalogID(ctx, user.ID, 100, model.MediaTypeTV)
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusWatching, m.WatchStatus)
	assert.Equal(t, 45, m.WatchTimeMinutes)
}

func TestTwoEpisodeShowScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "scenario@example.com")
	f.catalog.AddShow(200, "Two Parter", 1, 45, 50)

	show, err := f.watchlist.Add(ctx, user.ID, AddInput{CatalogID: 200, Type: model.MediaTypeTV})
	require.NoError(t, err)

	rows, err := f.episodes.FetchSeason(ctx, user.ID, 200, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	res, err := f.episodes.UpdateStatus(ctx, user.ID, rows[0].ID, EpisodeUpdateInput{Status: episodeStatusPtr(model.EpisodeStatusWatched)})
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusWatching, res.Show.Status)
	assert.Equal(t, 45, res.Show.WatchTimeMinutes)

	m, err := f.watchlist.Get(ctx, user.ID, show.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusWatching, m.WatchStatus)
	assert.Equal(t, 45, m.WatchTimeMinutes)

	res, err = f.episodes.UpdateStatus(ctx, user.ID, rows[1].ID, EpisodeUpdateInput{Status: episodeStatusPtr(model.EpisodeStatusWatched)})
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusCompleted, res.Show.Status)
	assert.Equal(t, 95, res.Show.WatchTimeMinutes)

	m, err = f.watchlist.Get(ctx, user.ID, show.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusCompleted, m.WatchStatus)
	assert.Equal(t, 95, m.WatchTimeMinutes)

	// 取消一集后回到 watching
	res, err = f.episodes.UpdateStatus(ctx, user.ID, rows[0].ID, EpisodeUpdateInput{Status: episodeStatusPtr(model.EpisodeStatusUnwatched)})
	require.NoError(t, err)
	assert.Equal(t, model.WatchStatusWatching, res.Show.Status)
	assert.Equal(t, 50, res.Show.WatchTimeMinutes)
	assert.Nil(t, res.Episode.WatchedAt)
}
