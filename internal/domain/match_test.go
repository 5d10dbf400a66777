package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func TestQuarterElapsed(t *testing.T) {
	m := Match{Status: StatusLive, QuarterStartedAt: at(0), AccumulatedPauseMs: 30000}
	assert.Equal(t, 90*time.Second, m.QuarterElapsed(t0.Add(2*time.Minute)))

	m.PausedAt = at(time.Minute)
	assert.Equal(t, 30*time.Second, m.QuarterElapsed(t0.Add(10*time.Minute)))
	assert.False(t, m.ClockRunning())

	assert.Zero(t, (&Match{}).QuarterElapsed(t0))
}

func TestScoreSides(t *testing.T) {
	m := Match{IsHome: false}
	assert.Equal(t, SideAway, m.OwnSide())
	assert.Equal(t, SideHome, m.OpponentSide())

	m.Decrement(SideHome)
	assert.Zero(t, m.HomeScore)
	m.Increment(SideAway)
	m.Increment(SideAway)
	m.Decrement(SideAway)
	assert.Equal(t, 1, m.AwayScore)
}

func TestMatchPlayerStint(t *testing.T) {
	p := MatchPlayer{OnField: true, MinutesPlayed: 10}
	p.StartStint(t0)
	assert.InDelta(t, 15.0, p.LiveMinutes(t0.Add(5*time.Minute)), 1e-9)

	p.CreditStint(t0.Add(5 * time.Minute))
	assert.Nil(t, p.LastSubbedInAt)
	assert.Equal(t, 15, p.WholeMinutes(t0.Add(time.Hour)))

	bench := MatchPlayer{}
	bench.StartStint(t0)
	assert.Nil(t, bench.LastSubbedInAt)
	assert.Zero(t, bench.Stint(t0.Add(time.Minute)))
}

func TestWholeMinutesRoundsDown(t *testing.T) {
	p := MatchPlayer{OnField: true, LastSubbedInAt: at(0)}
	assert.Equal(t, 4, p.WholeMinutes(t0.Add(4*time.Minute+59*time.Second)))
}

func TestGenerateCode(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 200; i++ {
		code := GenerateCode(r)
		assert.Len(t, code, PublicCodeLength)
		assert.True(t, ValidCode(code), code)
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "1")
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeCode(" abc234 "))
	assert.False(t, ValidCode("ABC23"))
	assert.False(t, ValidCode("ABC230"))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrInvalidMatchOrPIN))
	assert.True(t, IsPrecondition(ErrLeadAlreadyClaimed))
	assert.True(t, IsNotFoundError(ErrLeadMatchNotFound))
	assert.Equal(t, KindUnsupported, KindOf(ErrUnsupported))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}

func TestCardEventType(t *testing.T) {
	et, ok := CardRed.EventType()
	assert.True(t, ok)
	assert.Equal(t, EventRedCard, et)
	_, ok = CardType("green").EventType()
	assert.False(t, ok)
}
