package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
	"github.com/youth-scoreboard/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestViewIsReadOnly(t *testing.T) {
	st := New()
	ctx := context.Background()
	err := st.View(ctx, func(tx store.Tx) error {
		return tx.Teams().Insert(ctx, &domain.Team{ID: "t", Name: "x"})
	})
	assert.ErrorIs(t, err, domain.ErrReadOnly)
}

func TestCanceledContext(t *testing.T) {
	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := st.Update(ctx, func(store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
