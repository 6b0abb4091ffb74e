package publication

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFactorTable = `Journal Name,JIF
Nature,64.8
Journal of Chemical Information and Modeling,5.6
Briefings in Bioinformatics,9.5
malformed row
Journal of Cheminformatics,not-a-number
`

func writeFactorTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "factors.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleFactorTable), 0o644))
	return path
}

func TestNewCSVClassifier(t *testing.T) {
	classifier, err := NewCSVClassifier(writeFactorTable(t))
	require.NoError(t, err)

	// Header, short row, and non-numeric factor are all skipped.
	assert.Equal(t, 3, classifier.Size())
}

func TestNewCSVClassifierMissingFile(t *testing.T) {
	_, err := NewCSVClassifier(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestCSVClassifierImpactFactor(t *testing.T) {
	classifier, err := NewCSVClassifier(writeFactorTable(t))
	require.NoError(t, err)

	tests := []struct {
		name    string
		journal string
		want    float64
		wantSet bool
	}{
		{"exact name", "Nature", 64.8, true},
		{"case insensitive", "journal of chemical information and modeling", 5.6, true},
		{"whitespace collapsed", "  Briefings  in   Bioinformatics ", 9.5, true},
		{"unknown journal", "Obscure Regional Bulletin", 0, false},
		{"row with bad factor is absent", "Journal of Cheminformatics", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jif, err := classifier.ImpactFactor(context.Background(), tt.journal)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, jif.IsSet())
			assert.Equal(t, tt.want, jif.OrZero())
		})
	}
}

func TestNormalizeJournalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nature", "nature"},
		{"  Journal   of Cheminformatics\t", "journal of cheminformatics"},
		{"BRIEFINGS IN BIOINFORMATICS", "briefings in bioinformatics"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeJournalName(tt.in))
	}
}
