package roster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/store"
	"github.com/youth-scoreboard/internal/store/memory"
)

const sample = `
teams:
  - id: jo11-1
    name: JO11-1
    club_name: VV Oranje
    players:
      - {id: p1, name: Sem de Jong, number: 7}
      - {id: p2, name: Lotte Peters}
coaches:
  - id: c1
    name: Kim
    pin: ${ROSTER_TEST_PIN}
    teams: [jo11-1]
referees:
  - {id: r1, name: Joost, pin: "9999"}
`

func TestLoadAndApply(t *testing.T) {
	t.Setenv("ROSTER_TEST_PIN", "4321")
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Coaches, 1)
	assert.Equal(t, "4321", f.Coaches[0].PIN)

	st := memory.New()
	ctx := context.Background()
	res, err := Apply(ctx, st, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Teams: 1, Players: 2, Coaches: 1, Referees: 1}, res)

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		p, err := tx.Players().Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "jo11-1", p.TeamID)
		assert.Equal(t, 7, p.Number)

		c, err := tx.Coaches().GetByPIN(ctx, "4321")
		require.NoError(t, err)
		assert.True(t, c.HasTeam("jo11-1"))
		return nil
	}))

	again, err := Apply(ctx, st, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 5}, again)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"team without name", "teams: [{id: t1}]"},
		{"duplicate team", "teams: [{id: t1, name: A}, {id: t1, name: B}]"},
		{"duplicate player", "teams: [{id: t1, name: A, players: [{id: p, name: X}]}, {id: t2, name: B, players: [{id: p, name: Y}]}]"},
		{"coach without pin", "coaches: [{id: c1}]"},
		{"coach unknown team", "coaches: [{id: c1, pin: '1', teams: [nope]}]"},
		{"referee without pin", "referees: [{id: r1}]"},
		{"bad yaml", "teams: {"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
