package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabengine/internal/domain"
)

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func TestParseRounding(t *testing.T) {
	r, err := ParseRounding("")
	require.NoError(t, err)
	assert.Equal(t, RoundCeil, r)

	r, err = ParseRounding(" FLOOR ")
	require.NoError(t, err)
	assert.Equal(t, RoundFloor, r)

	_, err = ParseRounding("nearest")
	assert.True(t, domain.IsValidationError(err))
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		elapsed int64
		ceil    int64
		floor   int64
	}{
		{0, 1, 1},
		{30, 1, 1},
		{60, 1, 1},
		{61, 2, 1},
		{90, 2, 1},
		{120, 2, 2},
		{3599, 60, 59},
		{-5, 1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ceil, Minutes(tt.elapsed, RoundCeil), "ceil(%d)", tt.elapsed)
		assert.Equal(t, tt.floor, Minutes(tt.elapsed, RoundFloor), "floor(%d)", tt.elapsed)
	}
}

func TestAmount_RoundsHalfToEven(t *testing.T) {
	assert.Equal(t, int64(167), Amount(5000, 2))  // 166.67
	assert.Equal(t, int64(83), Amount(5000, 1))   // 83.33
	assert.Equal(t, int64(8000), Amount(8000, 60)) // exact hour
	assert.Equal(t, int64(2), Amount(150, 1))     // 2.5 -> 2
	assert.Equal(t, int64(4), Amount(210, 1))     // 3.5 -> 4
	assert.Equal(t, int64(0), Amount(0, 10))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "PS 2 players - 2 min", Label(domain.ModeP2, 2))
	assert.Equal(t, "PS 4 players - 15 min", Label(domain.ModeP4, 15))
}

func TestCompute(t *testing.T) {
	s := domain.Session{TableCode: "T05", Mode: domain.ModeP2, StartedAt: t0, AccumulatedSeconds: 30}
	rate := &domain.Rate{Mode: domain.ModeP2, PerHourCents: 5000}

	b := Compute(s, t0.Add(60*time.Second), rate, RoundCeil)
	assert.Equal(t, Bill{
		Table: "T05", Mode: domain.ModeP2, ElapsedSeconds: 90, Minutes: 2,
		AmountCents: 167, Label: "PS 2 players - 2 min",
	}, b)

	b = Compute(s, t0.Add(60*time.Second), rate, RoundFloor)
	assert.Equal(t, int64(1), b.Minutes)
	assert.Equal(t, int64(83), b.AmountCents)
}

func TestCompute_MissingRateBillsZero(t *testing.T) {
	s := domain.Session{TableCode: "T05", Mode: domain.ModeP4, StartedAt: t0}

	b := Compute(s, t0.Add(10*time.Minute), nil, RoundCeil)

	assert.True(t, b.RateMissing)
	assert.Equal(t, int64(0), b.AmountCents)
	assert.Equal(t, int64(10), b.Minutes)
	assert.Equal(t, "PS 4 players - 10 min", b.Label)
}

func TestMeter_PutGetRemove(t *testing.T) {
	m := NewMeter("")
	assert.Equal(t, RoundCeil, m.Rounding())

	m.Put(domain.Session{TableCode: "T02", Mode: domain.ModeP4, StartedAt: t0})
	m.Put(domain.Session{TableCode: "T01", Mode: domain.ModeP2, StartedAt: t0})

	s, ok := m.Get("T01")
	require.True(t, ok)
	assert.Equal(t, domain.ModeP2, s.Mode)
	assert.Equal(t, 2, m.Len())

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, "T01", all[0].TableCode)
	assert.Equal(t, "T02", all[1].TableCode)

	m.Remove("T01")
	_, ok = m.Get("T01")
	assert.False(t, ok)

	_, ok = m.Bill("T01", t0, nil)
	assert.False(t, ok)

	m.Reset()
	assert.Equal(t, 0, m.Len())
}

func TestMeter_FoldDoesNotMutateUntilApply(t *testing.T) {
	m := NewMeter(RoundCeil)
	m.Put(domain.Session{TableCode: "T05", Mode: domain.ModeP2, StartedAt: t0, AccumulatedSeconds: 10})

	now := t0.Add(5 * time.Second)
	folded := m.Fold(now)
	require.Len(t, folded, 1)
	assert.Equal(t, int64(15), folded[0].AccumulatedSeconds)
	assert.Equal(t, now, folded[0].StartedAt)

	cur, _ := m.Get("T05")
	assert.Equal(t, int64(10), cur.AccumulatedSeconds)
	assert.Equal(t, t0, cur.StartedAt)

	m.Apply(folded)
	cur, _ = m.Get("T05")
	assert.Equal(t, int64(15), cur.AccumulatedSeconds)
	assert.Equal(t, now, cur.StartedAt)

	// Folding never changes the billable time.
	later := now.Add(85 * time.Second)
	assert.Equal(t, int64(100), cur.Elapsed(later))
}

func TestMeter_ApplySkipsStoppedOrSwitched(t *testing.T) {
	m := NewMeter(RoundCeil)
	m.Put(domain.Session{TableCode: "T01", Mode: domain.ModeP2, StartedAt: t0})
	m.Put(domain.Session{TableCode: "T02", Mode: domain.ModeP2, StartedAt: t0})

	folded := m.Fold(t0.Add(30 * time.Second))
	m.Remove("T01")
	m.Put(domain.Session{TableCode: "T02", Mode: domain.ModeP4, StartedAt: t0.Add(20 * time.Second)})
	m.Apply(folded)

	_, ok := m.Get("T01")
	assert.False(t, ok)
	cur, _ := m.Get("T02")
	assert.Equal(t, domain.ModeP4, cur.Mode)
	assert.Equal(t, int64(0), cur.AccumulatedSeconds)
}

func TestFoldSession_KeepsSubSecondRemainder(t *testing.T) {
	s := domain.Session{TableCode: "T01", Mode: domain.ModeP2, StartedAt: t0}

	s = FoldSession(s, t0.Add(2500*time.Millisecond))
	assert.Equal(t, int64(2), s.AccumulatedSeconds)
	assert.Equal(t, t0.Add(2*time.Second), s.StartedAt)

	s = FoldSession(s, t0.Add(5*time.Second))
	assert.Equal(t, int64(5), s.AccumulatedSeconds)
}

func TestFoldSession_ClockWentBackwards(t *testing.T) {
	s := domain.Session{TableCode: "T01", Mode: domain.ModeP2, StartedAt: t0, AccumulatedSeconds: 7}

	s = FoldSession(s, t0.Add(-time.Minute))

	assert.Equal(t, int64(7), s.AccumulatedSeconds)
	assert.Equal(t, t0.Add(-time.Minute), s.StartedAt)
}
