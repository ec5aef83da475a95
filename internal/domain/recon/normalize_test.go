package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Dues Jan M Mustermann", "DUES JAN M MUSTERMANN"},
		{"collapses whitespace", "  Dues   Jan\tM  Mustermann ", "DUES JAN M MUSTERMANN"},
		{"strips punctuation", "Mustermann, Max - Beitrag (Januar)", "MUSTERMANN MAX BEITRAG JANUAR"},
		{"folds umlauts", "MÄRZ-Beitrag K. Müller", "MARZ BEITRAG K MULLER"},
		{"lowercase umlauts", "märz", "MARZ"},
		{"empty", "", ""},
		{"only punctuation", "--- !!! ---", ""},
		{"digits survive", "Ref 2024/01", "REF 2024 01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Dues Jan M Mustermann",
		"  Gutschrift:  Müller & Söhne GmbH  ",
		"MÄRZ 2025, Mitgliederbeitrag!!",
		"already NORMALIZED TEXT 123",
		"ärger-bäcker-übung",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "re-normalizing %q must be stable", in)
	}
}
