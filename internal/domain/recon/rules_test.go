package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRules_LongestFragmentWins(t *testing.T) {
	rules := []Rule{
		{Fragment: "MUSTERMANN", MemberID: "M001"},
		{Fragment: "MAX MUSTERMANN MUSTERSTRASSE", MemberID: "M002"},
	}

	hit, ok := matchRules(rules, "GUTSCHRIFT MAX MUSTERMANN MUSTERSTRASSE 1 ZUERICH")

	assert.True(t, ok)
	assert.Equal(t, "M002", hit.MemberID)
}

func TestMatchRules_TieBetweenMembersIsAmbiguous(t *testing.T) {
	rules := []Rule{
		{Fragment: "SCHMIDT", MemberID: "M001"},
		{Fragment: "MUELLER", MemberID: "M002"}, // same length, different member
	}

	_, ok := matchRules(rules, "BEITRAG SCHMIDT UND MUELLER")

	assert.False(t, ok)
}

func TestMatchRules_NoHit(t *testing.T) {
	rules := []Rule{{Fragment: "MUSTERMANN", MemberID: "M001"}}

	_, ok := matchRules(rules, "UNBEKANNTER ABSENDER")

	assert.False(t, ok)
}

func TestMatchRules_EmptyFragmentIgnored(t *testing.T) {
	rules := []Rule{{Fragment: "", MemberID: "M001"}}

	_, ok := matchRules(rules, "ANYTHING")

	assert.False(t, ok)
}

func TestNameIndex_SingleMatch(t *testing.T) {
	idx := buildNameIndex(
		[]string{"M001", "M002"},
		map[string]string{"M001": "Max Mustermann", "M002": "Anna Schmidt"},
	)

	id, ok, ambiguous := idx.match(Normalize("Dues Jan M Mustermann"))

	assert.True(t, ok)
	assert.False(t, ambiguous)
	assert.Equal(t, "M001", id)
}

func TestNameIndex_ShortTokensSkipped(t *testing.T) {
	// "M" must not match the initial of Max Mustermann.
	idx := buildNameIndex([]string{"M001"}, map[string]string{"M001": "Max Mustermann"})

	_, ok, ambiguous := idx.match("ZAHLUNG M 42")

	assert.False(t, ok)
	assert.False(t, ambiguous)
}

func TestNameIndex_TwoMembersNamedIsAmbiguous(t *testing.T) {
	idx := buildNameIndex(
		[]string{"M001", "M002"},
		map[string]string{"M001": "Anna Schmidt", "M002": "Tom Weber"},
	)

	_, ok, ambiguous := idx.match(Normalize("Beitrag Schmidt und Weber"))

	assert.False(t, ok)
	assert.True(t, ambiguous)
}

func TestNameIndex_DiacriticsFolded(t *testing.T) {
	idx := buildNameIndex([]string{"M001"}, map[string]string{"M001": "Kurt Müller"})

	id, ok, _ := idx.match(Normalize("Ueberweisung K. Muller"))

	assert.True(t, ok)
	assert.Equal(t, "M001", id)
}
