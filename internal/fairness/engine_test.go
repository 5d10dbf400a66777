package fairness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestPairsMostAndLeastPlayed(t *testing.T) {
	engine := NewEngine(3, 0)
	entries := []Entry{
		{PlayerID: "k", Name: "Keeper", Minutes: 30, OnField: true, IsKeeper: true},
		{PlayerID: "a", Name: "Ada", Minutes: 20, OnField: true},
		{PlayerID: "b", Name: "Bo", Minutes: 25, OnField: true},
		{PlayerID: "c", Name: "Cor", Minutes: 2, OnField: false},
		{PlayerID: "d", Name: "Dirk", Minutes: 8, OnField: false},
		{PlayerID: "x", Name: "Xander", Minutes: 0, Absent: true},
	}

	got := engine.Suggest(entries)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Out.PlayerID)
	assert.Equal(t, "c", got[0].In.PlayerID)
	assert.InDelta(t, 23.0, got[0].Gap, 0.001)
	assert.Equal(t, "a", got[1].Out.PlayerID)
	assert.Equal(t, "d", got[1].In.PlayerID)
	assert.Contains(t, got[0].Reason, "Cor speelde 23 min minder dan Bo")
}

func TestSuggestStopsWithinTolerance(t *testing.T) {
	engine := NewEngine(3, 0)
	entries := []Entry{
		{PlayerID: "a", Name: "Ada", Minutes: 20, OnField: true},
		{PlayerID: "b", Name: "Bo", Minutes: 12, OnField: true},
		{PlayerID: "c", Name: "Cor", Minutes: 5, OnField: false},
		{PlayerID: "d", Name: "Dirk", Minutes: 10, OnField: false},
	}

	got := engine.Suggest(entries)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Out.PlayerID)
	assert.Equal(t, "c", got[0].In.PlayerID)
}

func TestSuggestFairEnoughIsEmpty(t *testing.T) {
	engine := NewEngine(3, 0)
	entries := []Entry{
		{PlayerID: "a", Name: "Ada", Minutes: 11, OnField: true},
		{PlayerID: "b", Name: "Bo", Minutes: 9, OnField: false},
	}
	assert.Empty(t, engine.Suggest(entries))
	assert.Empty(t, engine.Suggest(nil))
}

func TestSuggestNeverRotatesKeeper(t *testing.T) {
	engine := NewEngine(0, 0)
	entries := []Entry{
		{PlayerID: "k", Name: "Keeper", Minutes: 40, OnField: true, IsKeeper: true},
		{PlayerID: "c", Name: "Cor", Minutes: 0, OnField: false},
	}
	assert.Empty(t, engine.Suggest(entries))
}

func TestSuggestTieBreaks(t *testing.T) {
	engine := NewEngine(1, 1)
	entries := []Entry{
		{PlayerID: "a", Name: "Ada", Minutes: 10.2, OnField: true, Stint: 2 * time.Minute},
		{PlayerID: "b", Name: "Bo", Minutes: 10.9, OnField: true, Stint: 8 * time.Minute},
		{PlayerID: "c", Name: "Cor", Minutes: 1, OnField: false, BenchWait: time.Minute},
		{PlayerID: "d", Name: "Dirk", Minutes: 1.5, OnField: false, BenchWait: 6 * time.Minute},
	}

	got := engine.Suggest(entries)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Out.PlayerID, "longest stint rotates out first")
	assert.Equal(t, "d", got[0].In.PlayerID, "longest bench wait comes in first")
	assert.Contains(t, got[0].Reason, "al 6 min op de bank")
	assert.Contains(t, got[0].Reason, "Bo staat 8 min aaneengesloten in het veld")
}

func TestSuggestNeverBringsBenchKeeperIn(t *testing.T) {
	engine := NewEngine(0, 0)
	entries := []Entry{
		{PlayerID: "a", Name: "Ada", Minutes: 20, OnField: true},
		{PlayerID: "k", Name: "Keeper", Minutes: 0, OnField: false, IsKeeper: true},
		{PlayerID: "c", Name: "Cor", Minutes: 5, OnField: false},
	}

	got := engine.Suggest(entries)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Out.PlayerID)
	assert.Equal(t, "c", got[0].In.PlayerID)
}

func TestSuggestRespectsLimit(t *testing.T) {
	engine := NewEngine(0, 1)
	entries := []Entry{
		{PlayerID: "a", Name: "Ada", Minutes: 20, OnField: true},
		{PlayerID: "b", Name: "Bo", Minutes: 20, OnField: true},
		{PlayerID: "c", Name: "Cor", Minutes: 0, OnField: false},
		{PlayerID: "d", Name: "Dirk", Minutes: 0, OnField: false},
	}
	assert.Len(t, engine.Suggest(entries), 1)
}

func TestRankByMinutes(t *testing.T) {
	entries := []Entry{
		{PlayerID: "a", Name: "Ada", Minutes: 9},
		{PlayerID: "b", Name: "Bo", Minutes: 3},
		{PlayerID: "c", Name: "Anna", Minutes: 9},
	}
	ranked := RankByMinutes(entries)
	ids := []string{ranked[0].PlayerID, ranked[1].PlayerID, ranked[2].PlayerID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, "a", entries[0].PlayerID, "input untouched")
}

func TestWholeMinutesRoundsDown(t *testing.T) {
	assert.Equal(t, 14, Entry{Minutes: 14.99}.WholeMinutes())
	assert.Equal(t, 0, Entry{Minutes: 0.4}.WholeMinutes())
}
