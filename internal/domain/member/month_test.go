package member

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth_StringAndParseRoundTrip(t *testing.T) {
	m := Month{Year: 2025, Month: time.March}

	assert.Equal(t, "2025-03", m.String())

	parsed, err := ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, s := range []string{"", "2025", "03.2025", "2025-13"} {
		_, err := ParseMonth(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestMonth_NextRollsOverYear(t *testing.T) {
	assert.Equal(t, Month{Year: 2026, Month: time.January}, Month{Year: 2025, Month: time.December}.Next())
	assert.Equal(t, Month{Year: 2025, Month: time.July}, Month{Year: 2025, Month: time.June}.Next())
}

func TestMonth_Before(t *testing.T) {
	jan := Month{Year: 2025, Month: time.January}
	dec24 := Month{Year: 2024, Month: time.December}

	assert.True(t, dec24.Before(jan))
	assert.False(t, jan.Before(dec24))
	assert.False(t, jan.Before(jan))
}

func TestCategory_MonthlyDue(t *testing.T) {
	assert.Equal(t, "50", CategoryActive.MonthlyDue().String())
	assert.Equal(t, "25", CategoryPassive.MonthlyDue().String())
	assert.True(t, CategoryInactive.MonthlyDue().IsZero())
}

func TestMember_Validate(t *testing.T) {
	valid := Member{Name: "Max Mustermann", Category: CategoryActive}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Member{Category: CategoryActive}.Validate())
	assert.Error(t, Member{Name: "Max", Category: "Ehrenmitglied"}.Validate())
}
