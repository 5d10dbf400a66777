package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
	"github.com/youth-scoreboard/internal/store/storetest"
)

var dbSeq atomic.Int64

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:scoreboard_%d?mode=memory&cache=shared", dbSeq.Add(1))
	st, err := Open(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTestStore(t) })
}

func TestViewIsReadOnly(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	err := st.View(ctx, func(tx store.Tx) error {
		return tx.Teams().Insert(ctx, &domain.Team{ID: "t", Name: "x"})
	})
	assert.ErrorIs(t, err, domain.ErrReadOnly)
}

func TestRollbackOnError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Update(ctx, func(tx store.Tx) error {
		if err := tx.Teams().Insert(ctx, &domain.Team{ID: "team-x", Name: "JO11-1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = st.View(ctx, func(tx store.Tx) error {
		_, err := tx.Teams().Get(ctx, "team-x")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCoachTeamsRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		return tx.Coaches().Insert(ctx, &domain.Coach{ID: "c1", Name: "Kim", PIN: "4321", TeamIDs: []string{"team-1", "team-2"}})
	}))

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		c, err := tx.Coaches().GetByPIN(ctx, "4321")
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"team-1", "team-2"}, c.TeamIDs)
		assert.True(t, c.HasTeam("team-2"))
		return nil
	}))
	require.NoError(t, st.Ping(ctx))
}
