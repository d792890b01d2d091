package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcademicYearOf(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), "2025-2026"},
		{time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), "2025-2026"},
		{time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), "2026-2027"},
		{time.Date(2026, time.August, 31, 23, 0, 0, 0, time.UTC), "2025-2026"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AcademicYearOf(c.at), c.at.String())
	}
}

func TestParseAcademicYear(t *testing.T) {
	y, err := ParseAcademicYear("2024-2025")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)

	for _, bad := range []string{"", "2024", "2024-2026", "abcd-2025", "2024-xyz"} {
		_, err := ParseAcademicYear(bad)
		assert.Error(t, err, bad)
	}
}

func TestLatestAcademicYear(t *testing.T) {
	latest, ok := LatestAcademicYear([]string{"2023-2024", "bogus", "2025-2026", "2024-2025"})
	assert.True(t, ok)
	assert.Equal(t, "2025-2026", latest)

	_, ok = LatestAcademicYear([]string{"nope"})
	assert.False(t, ok)
}
