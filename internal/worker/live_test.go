package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
)

type fakeRefresher struct {
	mu        sync.Mutex
	codes     []string
	failing   map[string]bool
	refreshed []string
	listErr   error
}

func (f *fakeRefresher) ActiveCodes(_ context.Context, limit int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.codes) > limit {
		return f.codes[:limit], nil
	}
	return f.codes, nil
}

func (f *fakeRefresher) Refresh(_ context.Context, code string) (*domain.PublicView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[code] {
		return nil, errors.New("boom")
	}
	f.refreshed = append(f.refreshed, code)
	return &domain.PublicView{PublicCode: code}, nil
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshed)
}

func newWorker(f *fakeRefresher, interval time.Duration) *LiveWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLiveWorker(f, &config.LiveConfig{Enabled: true, Interval: interval, Limit: 10}, logger)
}

func TestRunOnce(t *testing.T) {
	f := &fakeRefresher{codes: []string{"AAA234", "BBB234", "CCC234"}, failing: map[string]bool{"BBB234": true}}
	w := newWorker(f, time.Hour)

	refreshed, failed := w.RunOnce(context.Background())
	assert.Equal(t, 2, refreshed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"AAA234", "CCC234"}, f.refreshed)
}

func TestRunOnceListError(t *testing.T) {
	f := &fakeRefresher{listErr: errors.New("db down")}
	refreshed, failed := newWorker(f, time.Hour).RunOnce(context.Background())
	assert.Zero(t, refreshed)
	assert.Zero(t, failed)
}

func TestStartStop(t *testing.T) {
	f := &fakeRefresher{codes: []string{"AAA234"}}
	w := newWorker(f, 5*time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())

	require.Eventually(t, func() bool { return f.count() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())
}
