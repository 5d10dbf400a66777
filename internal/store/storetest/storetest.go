// Package storetest holds the behaviour every store.Store implementation
// must share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/store"
)

// Factory returns an empty store. The store is closed by the suite.
type Factory func(t *testing.T) store.Store

var errAbort = errors.New("abort")

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// Run executes the contract suite against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"MatchRoundTrip", testMatchRoundTrip},
		{"DuplicateCode", testDuplicateCode},
		{"RollbackOnError", testRollbackOnError},
		{"ListMatches", testListMatches},
		{"MatchPlayers", testMatchPlayers},
		{"EventOrder", testEventOrder},
		{"People", testPeople},
		{"NotFound", testNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore(t)
			t.Cleanup(func() { _ = st.Close() })
			tt.fn(t, st)
		})
	}
}

func insertMatch(t *testing.T, st store.Store, m domain.Match) domain.Match {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		return tx.Matches().Insert(ctx, &m)
	}))
	require.NotEmpty(t, m.ID)
	return m
}

func getMatch(t *testing.T, st store.Store, id string) *domain.Match {
	t.Helper()
	ctx := context.Background()
	var got *domain.Match
	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		var err error
		got, err = tx.Matches().Get(ctx, id)
		return err
	}))
	return got
}

func testMatchRoundTrip(t *testing.T, st store.Store) {
	ctx := context.Background()
	scheduled := base.Add(24 * time.Hour)
	m := insertMatch(t, st, domain.Match{
		PublicCode:     "ABC234",
		TeamID:         "team-1",
		CoachPIN:       "1111",
		Opponent:       "SV Blauw",
		IsHome:         true,
		ScheduledAt:    &scheduled,
		Status:         domain.StatusScheduled,
		CurrentQuarter: 1,
		QuarterCount:   4,
		CreatedAt:      base,
		UpdatedAt:      base,
	})

	got := getMatch(t, st, m.ID)
	assert.Equal(t, "ABC234", got.PublicCode)
	assert.Equal(t, "1111", got.CoachPIN)
	assert.Equal(t, 4, got.QuarterCount)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, scheduled.Equal(*got.ScheduledAt))
	assert.Nil(t, got.StartedAt)

	paused := base.Add(time.Minute)
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Matches().Get(ctx, m.ID)
		if err != nil {
			return err
		}
		cur.Status = domain.StatusLive
		cur.StartedAt = &base
		cur.QuarterStartedAt = &base
		cur.PausedAt = &paused
		cur.AccumulatedPauseMs = 1500
		cur.HomeScore = 2
		cur.LeadCoachID = "coach-a"
		cur.RefereeID = "ref-1"
		cur.ShowLineup = true
		return tx.Matches().Update(ctx, cur)
	}))

	got = getMatch(t, st, m.ID)
	assert.Equal(t, domain.StatusLive, got.Status)
	require.NotNil(t, got.PausedAt)
	assert.True(t, paused.Equal(*got.PausedAt))
	assert.Equal(t, int64(1500), got.AccumulatedPauseMs)
	assert.Equal(t, 2, got.HomeScore)
	assert.Equal(t, "coach-a", got.LeadCoachID)
	assert.Equal(t, "ref-1", got.RefereeID)
	assert.True(t, got.ShowLineup)

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		byCode, err := tx.Matches().GetByPublicCode(ctx, "abc234")
		if err != nil {
			return err
		}
		assert.Equal(t, m.ID, byCode.ID)

		exists, err := tx.Matches().CodeExists(ctx, "ABC234")
		if err != nil {
			return err
		}
		assert.True(t, exists)
		exists, err = tx.Matches().CodeExists(ctx, "ZZZ999")
		assert.False(t, exists)
		return err
	}))
}

func testDuplicateCode(t *testing.T, st store.Store) {
	ctx := context.Background()
	insertMatch(t, st, domain.Match{PublicCode: "DUP234", TeamID: "team-1", Status: domain.StatusScheduled, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base})

	err := st.Update(ctx, func(tx store.Tx) error {
		return tx.Matches().Insert(ctx, &domain.Match{PublicCode: "DUP234", TeamID: "team-1", Status: domain.StatusScheduled, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base})
	})
	assert.ErrorIs(t, err, store.ErrDuplicateCode)
}

func testRollbackOnError(t *testing.T, st store.Store) {
	ctx := context.Background()
	m := insertMatch(t, st, domain.Match{PublicCode: "RBK234", TeamID: "team-1", Status: domain.StatusScheduled, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base})

	err := st.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Matches().Get(ctx, m.ID)
		if err != nil {
			return err
		}
		cur.HomeScore = 5
		if err := tx.Matches().Update(ctx, cur); err != nil {
			return err
		}
		if err := tx.Events().Append(ctx, &domain.MatchEvent{MatchID: m.ID, Type: domain.EventGoal, Quarter: 1, Timestamp: base, CreatedAt: base}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	assert.Zero(t, getMatch(t, st, m.ID).HomeScore)
	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		events, err := tx.Events().ListByMatch(ctx, m.ID)
		assert.Empty(t, events)
		return err
	}))
}

func testListMatches(t *testing.T, st store.Store) {
	ctx := context.Background()
	older := insertMatch(t, st, domain.Match{PublicCode: "OLD234", TeamID: "team-1", Status: domain.StatusLive, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base})
	newer := insertMatch(t, st, domain.Match{PublicCode: "NEW234", TeamID: "team-1", Status: domain.StatusScheduled, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base.Add(time.Hour)})
	insertMatch(t, st, domain.Match{PublicCode: "OTH234", TeamID: "team-2", Status: domain.StatusLive, CurrentQuarter: 1, QuarterCount: 2, CreatedAt: base.Add(2 * time.Hour)})

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		list, err := tx.Matches().ListByTeam(ctx, "team-1", 10)
		if err != nil {
			return err
		}
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)

		list, err = tx.Matches().ListByTeam(ctx, "team-1", 1)
		if err != nil {
			return err
		}
		require.Len(t, list, 1)
		assert.Equal(t, newer.ID, list[0].ID)

		live, err := tx.Matches().ListByStatus(ctx, domain.StatusLive, 10)
		assert.Len(t, live, 2)
		return err
	}))
}

func testMatchPlayers(t *testing.T, st store.Store) {
	ctx := context.Background()
	m := insertMatch(t, st, domain.Match{PublicCode: "MPL234", TeamID: "team-1", Status: domain.StatusScheduled, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base})

	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		for i, pid := range []string{"p1", "p2", "p3"} {
			mp := &domain.MatchPlayer{MatchID: m.ID, PlayerID: pid, CreatedAt: base.Add(time.Duration(i) * time.Second)}
			if err := tx.MatchPlayers().Insert(ctx, mp); err != nil {
				return err
			}
		}
		return nil
	}))

	slot := 4
	started := base.Add(time.Minute)
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		p, err := tx.MatchPlayers().Get(ctx, m.ID, "p2")
		if err != nil {
			return err
		}
		p.OnField = true
		p.IsKeeper = true
		p.FieldSlotIndex = &slot
		p.MinutesPlayed = 12.5
		p.LastSubbedInAt = &started
		return tx.MatchPlayers().Update(ctx, p)
	}))

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		list, err := tx.MatchPlayers().ListByMatch(ctx, m.ID)
		if err != nil {
			return err
		}
		require.Len(t, list, 3)
		assert.Equal(t, []string{"p1", "p2", "p3"}, []string{list[0].PlayerID, list[1].PlayerID, list[2].PlayerID})

		p := list[1]
		assert.True(t, p.OnField)
		assert.True(t, p.IsKeeper)
		require.NotNil(t, p.FieldSlotIndex)
		assert.Equal(t, 4, *p.FieldSlotIndex)
		assert.InDelta(t, 12.5, p.MinutesPlayed, 1e-9)
		require.NotNil(t, p.LastSubbedInAt)
		assert.True(t, started.Equal(*p.LastSubbedInAt))
		assert.Nil(t, list[0].FieldSlotIndex)
		return nil
	}))
}

func testEventOrder(t *testing.T, st store.Store) {
	ctx := context.Background()
	m := insertMatch(t, st, domain.Match{PublicCode: "EVT234", TeamID: "team-1", Status: domain.StatusLive, CurrentQuarter: 1, QuarterCount: 4, CreatedAt: base})

	types := []domain.EventType{domain.EventQuarterStart, domain.EventGoal, domain.EventAssist, domain.EventSubOut, domain.EventSubIn}
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		for _, et := range types[:1] {
			if err := tx.Events().Append(ctx, &domain.MatchEvent{MatchID: m.ID, Type: et, Quarter: 1, Timestamp: base, CreatedAt: base}); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		var batch []*domain.MatchEvent
		for _, et := range types[1:] {
			batch = append(batch, &domain.MatchEvent{
				MatchID:         m.ID,
				Type:            et,
				PlayerID:        "p1",
				RelatedPlayerID: "p2",
				Quarter:         1,
				IsOwnGoal:       et == domain.EventGoal,
				Timestamp:       base,
				CreatedAt:       base,
			})
		}
		return tx.Events().Append(ctx, batch...)
	}))

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		events, err := tx.Events().ListByMatch(ctx, m.ID)
		if err != nil {
			return err
		}
		require.Len(t, events, len(types))
		for i, ev := range events {
			assert.Equal(t, types[i], ev.Type)
			assert.NotEmpty(t, ev.ID)
		}
		assert.True(t, events[1].IsOwnGoal)
		assert.Equal(t, "p2", events[1].RelatedPlayerID)

		goals, err := tx.Events().ListByMatchAndType(ctx, m.ID, domain.EventGoal)
		assert.Len(t, goals, 1)
		return err
	}))
}

func testPeople(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		if err := tx.Teams().Insert(ctx, &domain.Team{ID: "team-1", Name: "JO11-1", ClubName: "VV Oranje"}); err != nil {
			return err
		}
		if err := tx.Coaches().Insert(ctx, &domain.Coach{ID: "coach-a", Name: "Coach A", PIN: "1111", TeamIDs: []string{"team-1", "team-2"}}); err != nil {
			return err
		}
		if err := tx.Referees().Insert(ctx, &domain.Referee{ID: "ref-1", Name: "Rita", PIN: "5555"}); err != nil {
			return err
		}
		for _, p := range []domain.Player{
			{ID: "p1", TeamID: "team-1", Name: "Anna", Number: 7},
			{ID: "p2", TeamID: "team-1", Name: "Bram", Number: 9},
		} {
			p := p
			if err := tx.Players().Insert(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		coach, err := tx.Coaches().GetByPIN(ctx, "1111")
		if err != nil {
			return err
		}
		assert.Equal(t, "coach-a", coach.ID)
		assert.ElementsMatch(t, []string{"team-1", "team-2"}, coach.TeamIDs)
		assert.True(t, coach.HasTeam("team-2"))

		ref, err := tx.Referees().GetByPIN(ctx, "5555")
		if err != nil {
			return err
		}
		assert.Equal(t, "Rita", ref.Name)

		team, err := tx.Teams().Get(ctx, "team-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "VV Oranje", team.ClubName)

		players, err := tx.Players().ListByIDs(ctx, []string{"p1", "p2", "ghost", "p1"})
		if err != nil {
			return err
		}
		assert.Len(t, players, 2)
		assert.Equal(t, 9, players["p2"].Number)

		empty, err := tx.Players().ListByIDs(ctx, nil)
		assert.Empty(t, empty)
		return err
	}))
}

func testNotFound(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		_, err := tx.Matches().Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Matches().GetByPublicCode(ctx, "ZZZ999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.MatchPlayers().Get(ctx, "missing", "p1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Coaches().GetByPIN(ctx, "0000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Referees().Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Players().Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.Teams().Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}
