package version

import (
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("1.2.3"))
	assert.True(t, IsValid("0.1.0"))
	assert.True(t, IsValid("2.0.0-beta.1"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("not-a-version"))
	assert.False(t, IsValid("1.2.3.4.5.banana"))
}

func TestIsValidRange(t *testing.T) {
	assert.True(t, IsValidRange("^1.2.0"))
	assert.True(t, IsValidRange("~0.3.0"))
	assert.True(t, IsValidRange(">=1.0.0 <2.0.0"))
	assert.False(t, IsValidRange("also not a range !!"))
}

func TestValidityChecksWarnOnInvalidInput(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	SetLogger(logger)
	defer SetLogger(logrus.StandardLogger())

	assert.False(t, IsValid("not-a-version"))
	assert.False(t, IsValidRange("also not a range !!"))

	require.Len(t, hook.Entries, 2)
	for _, entry := range hook.Entries {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
	}
}

func TestSatisfies(t *testing.T) {
	assert.True(t, Satisfies("1.5.0", "^1.2.0"))
	assert.False(t, Satisfies("2.0.0", "^1.2.0"))
	assert.True(t, Satisfies("0.3.2", "~0.3.0"))
	assert.False(t, Satisfies("0.4.0", "~0.3.0"))

	// Fail-closed on invalid input.
	assert.False(t, Satisfies("garbage", "^1.0.0"))
	assert.False(t, Satisfies("1.0.0", "garbage !!"))
}

func TestCompareTotalOrder(t *testing.T) {
	versions := []string{"2.0.0", "1.0.0", "1.2.0", "1.2.0-alpha", "1.2.1", "0.9.0"}
	sort.Slice(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})

	assert.Equal(t,
		[]string{"0.9.0", "1.0.0", "1.2.0-alpha", "1.2.0", "1.2.1", "2.0.0"},
		versions)
}

func TestCompareInvalidInput(t *testing.T) {
	assert.Equal(t, 0, Compare("junk", "1.0.0"))
	assert.Equal(t, 0, Compare("1.0.0", "junk"))
}

func TestCompareNumericSegments(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.2.0", -1},
		{"1.2.0", "1.1.5", 1},
		{"1.2", "1.2.0", 0},
		{"1.2.1", "1.2", 1},
		{"v2.0.0", "1.9.9", 1},
		{"10.0.0", "9.0.0", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareNumericSegments(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestIsBreakingChange(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"1.2.3", "1.3.0", false},
		{"1.2.3", "2.0.0", true},
		{"0.2.0", "0.3.0", true},
		{"0.2.0", "0.2.5", false},
		{"2.0.0", "1.0.0", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBreakingChange(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.False(t, IsBreakingChange("junk", "1.0.0"))
	assert.False(t, IsBreakingChange("1.0.0", "junk"))
}

func TestGetUpdateStrategy(t *testing.T) {
	tests := []struct {
		current, latest string
		want            UpdateStrategy
	}{
		{"1.2.3", "1.2.3", UpdateNone},
		{"1.2.3", "1.2.4", UpdatePatch},
		{"1.2.3", "1.3.0", UpdateMinor},
		{"1.2.3", "2.0.0", UpdateMajor},
		{"1.2.3", "2.0.0-rc.1", UpdatePrerelease},
		{"2.0.0", "1.9.0", UpdateNone},
		{"junk", "1.0.0", UpdateNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetUpdateStrategy(tt.current, tt.latest),
			"%s -> %s", tt.current, tt.latest)
	}
}

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name             string
		min, max, current string
		compatible       bool
		reason           IncompatibilityReason
	}{
		{"within bounds", "1.0.0", "3.0.0", "2.0.0", true, ""},
		{"no upper bound", "1.0.0", "", "99.0.0", true, ""},
		{"too low", "2.0.0", "", "1.9.9", false, ReasonVersionTooLow},
		{"too high", "1.0.0", "2.0.0", "2.0.1", false, ReasonVersionTooHigh},
		{"exactly min", "1.0.0", "2.0.0", "1.0.0", true, ""},
		{"exactly max", "1.0.0", "2.0.0", "2.0.0", true, ""},
		{"invalid current", "1.0.0", "", "junk", false, ReasonInvalidVersion},
		{"invalid min", "junk", "", "1.0.0", false, ReasonInvalidVersion},
		{"invalid max", "1.0.0", "junk", "1.5.0", false, ReasonInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckCompatibility(tt.min, tt.max, tt.current)
			assert.Equal(t, tt.compatible, got.Compatible)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}
