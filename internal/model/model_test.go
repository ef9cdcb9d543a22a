package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListScan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan("user, admin,,"))
	assert.Equal(t, StringList{"user", "admin"}, l)

	require.NoError(t, l.Scan([]byte("user")))
	assert.Equal(t, StringList{"user"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))

	v, err := StringList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, "a,b", v)
}

func TestEstimatedWatchTime(t *testing.T) {
	assert.Equal(t, 0, EstimatedWatchTime(nil))
	assert.Equal(t, 148, EstimatedWatchTime(&CatalogItem{Type: MediaTypeMovie, Runtime: 148}))
	assert.Equal(t, 10*45, EstimatedWatchTime(&CatalogItem{Type: MediaTypeTV, Runtime: 45, EpisodeCount: 10}))
}

func TestStatusValidity(t *testing.T) {
	assert.True(t, WatchStatusWatching.Valid())
	assert.False(t, WatchStatus("dropped").Valid())
	assert.True(t, EpisodeStatusSkipped.Valid())
	assert.False(t, EpisodeStatus("planned").Valid())
	assert.True(t, MediaTypeTV.Valid())
	assert.False(t, MediaType("person").Valid())
}

func TestEpisodeCode(t *testing.T) {
	e := Episode{SeasonNumber: 1, EpisodeNumber: 2}
	assert.Equal(t, "S01E02", e.Code())
	assert.Equal(t, "S10E120", FormatEpisodeCode(10, 120))
}

func TestUserHasRole(t *testing.T) {
	u := User{Roles: StringList{RoleUser, RoleAdmin}}
	assert.True(t, u.HasRole(RoleAdmin))
	assert.False(t, (&User{Roles: StringList{RoleUser}}).HasRole(RoleAdmin))
}
