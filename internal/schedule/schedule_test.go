package schedule_test

import (
	"testing"
	"time"

	"jobengine/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RejectsInvalidExpressions(t *testing.T) {
	cases := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"five fields", "* * * * *"},
		{"seven fields", "* * * * * * *"},
		{"second out of range", "60 * * * * *"},
		{"hour out of range", "0 0 24 * * *"},
		{"month out of range", "0 0 0 1 13 *"},
		{"garbage", "not a cron"},
		{"descriptor", "@hourly"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schedule.Parse(tc.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, schedule.ErrInvalidExpression)
		})
	}
}

func TestParse_AcceptsSupportedSyntax(t *testing.T) {
	for _, expr := range []string{
		"* * * * * *",
		"0 */5 * * * *",
		"30 0 4 * * *",
		"0 0 12 1-15 * *",
		"0 15,45 * * * *",
		"0 0 9 * * MON-FRI",
		"0 0 0 1 JAN *",
	} {
		_, err := schedule.Parse(expr)
		require.NoError(t, err, "expression %q", expr)
	}
}

func TestMatches_EverySecond(t *testing.T) {
	s := schedule.MustParse("* * * * * *")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 90; i++ {
		assert.True(t, s.Matches(base.Add(time.Duration(i)*time.Second)))
	}
}

func TestMatches_FiveMinuteBoundary(t *testing.T) {
	s := schedule.MustParse("0 */5 * * * *")

	assert.True(t, s.Matches(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, s.Matches(time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)))
	assert.True(t, s.Matches(time.Date(2026, 3, 1, 10, 55, 0, 0, time.UTC)))

	assert.False(t, s.Matches(time.Date(2026, 3, 1, 10, 5, 1, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 3, 1, 10, 4, 0, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 3, 1, 10, 3, 30, 0, time.UTC)))
}

func TestMatches_SpecificDailyInstant(t *testing.T) {
	s := schedule.MustParse("30 15 4 * * *")

	assert.True(t, s.Matches(time.Date(2026, 3, 1, 4, 15, 30, 0, time.UTC)))
	assert.True(t, s.Matches(time.Date(2026, 3, 2, 4, 15, 30, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 3, 1, 4, 15, 31, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 3, 1, 5, 15, 30, 0, time.UTC)))
}

// Day-of-month and day-of-week combine with logical OR when both are
// restricted, per standard cron semantics.
func TestMatches_DomDowUnion(t *testing.T) {
	s := schedule.MustParse("0 0 12 13 * FRI")

	// 2026-01-13 is a Tuesday: matches on day-of-month alone.
	assert.True(t, s.Matches(time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC)))
	// 2026-01-16 is a Friday: matches on day-of-week alone.
	assert.True(t, s.Matches(time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)))
	// 2026-01-14 is a Wednesday and not the 13th: no match.
	assert.False(t, s.Matches(time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)))
}

func TestMatches_TruncatesSubsecond(t *testing.T) {
	s := schedule.MustParse("0 */5 * * * *")
	at := time.Date(2026, 3, 1, 10, 5, 0, 999_000_000, time.UTC)
	assert.True(t, s.Matches(at))
}

func TestMatches_Deterministic(t *testing.T) {
	s := schedule.MustParse("0 30 8 * * MON")
	at := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) // a Monday
	first := s.Matches(at)
	for i := 0; i < 1000; i++ {
		require.Equal(t, first, s.Matches(at))
	}
	assert.True(t, first)
}

func TestNext_AdvancesPastInstant(t *testing.T) {
	s := schedule.MustParse("0 */5 * * * *")
	at := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC), s.Next(at))
}
