package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/domain"
)

func newTestCache(t *testing.T) (*ViewCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewViewCacheWithClient(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestViewCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	miss, err := cache.GetPublicView(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, miss)

	view := &domain.PublicView{
		PublicCode:     "ABC234",
		TeamName:       "JO11-1",
		Status:         domain.StatusLive,
		CurrentQuarter: 2,
		QuarterCount:   4,
		HomeScore:      3,
		AwayScore:      1,
		Timeline:       []domain.TimelineEntry{{Type: domain.EventGoal, Quarter: 1, PlayerName: "Anna"}},
	}
	require.NoError(t, cache.SetPublicView(ctx, view))

	got, err := cache.GetPublicView(ctx, "ABC234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "JO11-1", got.TeamName)
	assert.Equal(t, 3, got.HomeScore)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, "Anna", got.Timeline[0].PlayerName)

	board, err := cache.GetScoreboard(ctx, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, Scoreboard{Status: domain.StatusLive, Quarter: 2, Home: 3, Away: 1}, *board)
}

func TestViewCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetPublicView(ctx, &domain.PublicView{PublicCode: "ABC234"}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.GetPublicView(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = cache.GetScoreboard(ctx, "ABC234")
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestViewCacheInvalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetPublicView(ctx, &domain.PublicView{PublicCode: "ABC234"}))
	require.NoError(t, cache.InvalidatePublicView(ctx, "ABC234"))
	assert.False(t, mr.Exists("match:ABC234:public"))
	assert.False(t, mr.Exists("match:ABC234:score"))
}

func TestViewCacheDropsCorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("match:ABC234:public", "{not json"))
	got, err := cache.GetPublicView(ctx, "ABC234")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("match:ABC234:public"))
}

func TestViewCachePing(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, cache.Ping(context.Background()))

	mr.Close()
	assert.Error(t, cache.Ping(context.Background()))
}
