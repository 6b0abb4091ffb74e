package publication

import (
	"context"
	"errors"
	"strings"

	"github.com/caddvault/vault-updater/internal/domain"
)

// jifExclusions are venue names that never carry an impact factor. Matching
// is by lowercase substring so "arXiv (Cornell)" and "GitHub Pages" are both
// caught.
var jifExclusions = []string{
	"arxiv", "preprint", "biorxiv", "medrxiv", "chemrxiv",
	"github", "blog", "zenodo",
}

// Citations reports the Crossref citation count for the publication behind
// rawURL. References without an extractable DOI and DOIs unknown to Crossref
// yield an unset field, not an error.
func (c *Client) Citations(ctx context.Context, rawURL string) (domain.Field[int64], error) {
	doi := ExtractDOI(rawURL)
	if doi == "" {
		return domain.Field[int64]{}, nil
	}

	work, err := c.crossref.Work(ctx, doi)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Field[int64]{}, nil
		}
		return domain.Field[int64]{}, err
	}
	return domain.Set(work.IsReferencedByCount), nil
}

// Journal reports the journal identity for the publication behind rawURL.
// Works without container metadata yield an unset field.
func (c *Client) Journal(ctx context.Context, rawURL string) (domain.Field[domain.JournalInfo], error) {
	doi := ExtractDOI(rawURL)
	if doi == "" {
		return domain.Field[domain.JournalInfo]{}, nil
	}

	work, err := c.crossref.Work(ctx, doi)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Field[domain.JournalInfo]{}, nil
		}
		return domain.Field[domain.JournalInfo]{}, err
	}

	var info domain.JournalInfo
	if len(work.ContainerTitle) > 0 {
		info.Name = work.ContainerTitle[0]
	}
	if len(work.ISSN) > 0 {
		info.ISSN = work.ISSN[0]
	}
	if info.Name == "" && info.ISSN == "" {
		return domain.Field[domain.JournalInfo]{}, nil
	}
	return domain.Set(info), nil
}

// ImpactFactor reports the impact factor for a journal. Preprint servers and
// other non-journal venues are filtered out before the classifier is asked,
// and successful lookups are cached per journal name.
func (c *Client) ImpactFactor(ctx context.Context, journal domain.JournalInfo) (domain.Field[float64], error) {
	name := strings.TrimSpace(journal.Name)
	if name == "" || c.classifier == nil {
		return domain.Field[float64]{}, nil
	}

	key := strings.ToLower(name)
	for _, excluded := range jifExclusions {
		if strings.Contains(key, excluded) {
			return domain.Field[float64]{}, nil
		}
	}

	if jif, ok := c.jifCache.Get(key); ok {
		return domain.Set(jif), nil
	}

	factor, err := c.classifier.ImpactFactor(ctx, name)
	if err != nil {
		return domain.Field[float64]{}, err
	}
	if factor.IsSet() {
		c.jifCache.Add(key, factor.OrZero())
	}
	return factor, nil
}
