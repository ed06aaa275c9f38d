package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCrontabShouldNormalizeFields(t *testing.T) {
	sched, err := ParseCrontab("*/3 12-22/5 * * *")
	require.NoError(t, err)

	assert.Equal(t, KindCrontab, sched.Kind())
	assert.Equal(t, []int{0, 3, 6, 9, 12, 15, 18, 21, 24, 27, 30, 33, 36, 39, 42, 45, 48, 51, 54, 57}, sched.Minutes())
	assert.Equal(t, []int{12, 17, 22}, sched.Hours())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, sched.Months())
}

func TestParseCrontabAliasesShouldMatchExpansion(t *testing.T) {
	tests := []struct {
		alias    string
		expanded string
	}{
		{alias: "@yearly", expanded: "0 0 1 1 *"},
		{alias: "@annually", expanded: "0 0 1 1 *"},
		{alias: "@monthly", expanded: "0 0 1 * *"},
		{alias: "@weekly", expanded: "0 0 * * 0"},
		{alias: "@daily", expanded: "0 0 * * *"},
		{alias: "@midnight", expanded: "0 0 * * *"},
		{alias: "@hourly", expanded: "0 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			fromAlias, err := ParseCrontab(tt.alias)
			require.NoError(t, err)

			fromExpanded, err := ParseCrontab(tt.expanded)
			require.NoError(t, err)

			assert.True(t, fromAlias.Equal(fromExpanded))
		})
	}
}

func TestParseCrontabShouldFoldSundaySeven(t *testing.T) {
	sched, err := ParseCrontab("0 0 * * 7")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sched.Weekdays())

	sched, err = ParseCrontab("0 0 * * 0,7")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sched.Weekdays())

	sched, err = ParseCrontab("0 0 * * 5-7")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 6}, sched.Weekdays())
}

func TestParseCrontabDisjunctionRuleShouldClearWildcardSide(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		expectedDom []int
		expectedDow []int
	}{
		{
			name:        "dom restricted clears wildcard dow",
			schedule:    "0 0 1 * *",
			expectedDom: []int{1},
			expectedDow: nil,
		},
		{
			name:        "dow restricted clears wildcard dom",
			schedule:    "0 0 * * 1",
			expectedDom: nil,
			expectedDow: []int{1},
		},
		{
			name:        "both wildcards keep full ranges",
			schedule:    "0 0 * * *",
			expectedDom: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31},
			expectedDow: []int{0, 1, 2, 3, 4, 5, 6},
		},
		{
			name:        "both restricted keep both",
			schedule:    "0 0 1 * 1",
			expectedDom: []int{1},
			expectedDow: []int{1},
		},
		{
			name: "stepped wildcard is not a wildcard token",
			// "*/2" in dom restricts the field, so dow keeps its values.
			schedule:    "0 0 */2 * 1",
			expectedDom: []int{1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23, 25, 27, 29, 31},
			expectedDow: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := ParseCrontab(tt.schedule)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedDom, sched.Days())
			assert.Equal(t, tt.expectedDow, sched.Weekdays())
		})
	}
}

func TestParseCrontabShouldRejectInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
	}{
		{name: "four fields", schedule: "* * * *"},
		{name: "six fields", schedule: "* * * * * *"},
		{name: "unknown alias", schedule: "@fortnightly"},
		{name: "plain word", schedule: "tomorrow"},
		{name: "empty", schedule: ""},
		{name: "minute out of bounds", schedule: "60 * * * *"},
		{name: "inverted range", schedule: "5-1 * * * *"},
		{name: "dow above seven", schedule: "* * * * 8"},
		{name: "timestamp string", schedule: "2042-12-05 13:37 +00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCrontab(tt.schedule)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseCrontabShouldBeDeterministic(t *testing.T) {
	first, err := ParseCrontab("*/7 3 1,15 * 2")
	require.NoError(t, err)

	second, err := ParseCrontab("*/7 3 1,15 * 2")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Source(), second.Source())
}
