package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
	"github.com/youth-scoreboard/internal/store/memory"
)

func seeded(t *testing.T) (*memory.Store, string) {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	m := &domain.Match{PublicCode: "ABC234", TeamID: "team-1", CoachPIN: "1111", RefereeID: "ref-1", Status: domain.StatusScheduled}
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		if err := tx.Referees().Insert(ctx, &domain.Referee{ID: "ref-1", Name: "Rita", PIN: "5555"}); err != nil {
			return err
		}
		if err := tx.Coaches().Insert(ctx, &domain.Coach{ID: "coach-a", PIN: "1111", TeamIDs: []string{"team-1"}}); err != nil {
			return err
		}
		return tx.Matches().Insert(ctx, m)
	}))
	return st, m.ID
}

func TestAuthorizeMatch(t *testing.T) {
	st, matchID := seeded(t)
	gate := NewGate("9999")
	ctx := context.Background()

	tests := []struct {
		name    string
		matchID string
		pin     string
		perm    Permission
		role    Role
		wantErr bool
	}{
		{name: "coach pin", matchID: matchID, pin: "1111", perm: PermCoach, role: RoleCoach},
		{name: "admin pin", matchID: matchID, pin: "9999", perm: PermCoach, role: RoleAdmin},
		{name: "referee on clock", matchID: matchID, pin: "5555", perm: PermClock, role: RoleReferee},
		{name: "referee on score", matchID: matchID, pin: "5555", perm: PermCoach, wantErr: true},
		{name: "wrong pin", matchID: matchID, pin: "0000", perm: PermCoach, wantErr: true},
		{name: "empty pin", matchID: matchID, pin: "", perm: PermCoach, wantErr: true},
		{name: "missing match", matchID: "missing", pin: "1111", perm: PermCoach, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.View(ctx, func(tx store.Tx) error {
				m, id, err := gate.AuthorizeMatch(ctx, tx, tt.matchID, tt.pin, tt.perm)
				if err != nil {
					return err
				}
				assert.Equal(t, tt.matchID, m.ID)
				assert.Equal(t, tt.role, id.Role)
				return nil
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidMatchOrPIN)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAdminDisabledWhenEmpty(t *testing.T) {
	gate := NewGate("")
	assert.False(t, gate.IsAdmin(""))
	assert.False(t, gate.IsAdmin("9999"))
	assert.True(t, NewGate("9999").IsAdmin("9999"))
}

func TestResolveCoach(t *testing.T) {
	st, _ := seeded(t)
	gate := NewGate("")
	ctx := context.Background()

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		coach, err := gate.ResolveCoach(ctx, tx, "1111")
		require.NoError(t, err)
		assert.Equal(t, "coach-a", coach.ID)

		_, err = gate.ResolveCoach(ctx, tx, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}
