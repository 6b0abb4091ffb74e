package publication

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caddvault/vault-updater/internal/domain"
)

// CSVClassifier serves impact factors from a local CSV snapshot of a journal
// ranking table. Column 0 is the journal name, column 1 the factor; rows
// whose factor does not parse (the header row included) are skipped.
type CSVClassifier struct {
	factors map[string]float64
}

// NewCSVClassifier loads the impact factor table at path.
func NewCSVClassifier(path string) (*CSVClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening impact factor table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading impact factor table %s: %w", path, err)
	}

	factors := make(map[string]float64, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		factor, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		factors[normalizeJournalName(row[0])] = factor
	}
	return &CSVClassifier{factors: factors}, nil
}

// ImpactFactor looks the journal up in the loaded table. Unknown journals
// yield an unset field.
func (c *CSVClassifier) ImpactFactor(_ context.Context, journal string) (domain.Field[float64], error) {
	if factor, ok := c.factors[normalizeJournalName(journal)]; ok {
		return domain.Set(factor), nil
	}
	return domain.Field[float64]{}, nil
}

// Size reports the number of journals in the table.
func (c *CSVClassifier) Size() int {
	return len(c.factors)
}

// normalizeJournalName collapses case and whitespace so table lookups
// tolerate the formatting drift between Crossref and ranking exports.
func normalizeJournalName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
