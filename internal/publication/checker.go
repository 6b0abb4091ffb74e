package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/sources/biorxiv"
)

// titleSearchAttempts drive the title fallback: a broad search first, then a
// narrow quoted search when the broad one finds nothing.
var titleSearchRows = []struct {
	quoted bool
	rows   int
}{
	{quoted: false, rows: 20},
	{quoted: true, rows: 5},
}

// CheckPublicationStatus reports whether the preprint behind rawURL has a
// peer-reviewed counterpart. It never returns an error: lookup failures come
// back as StatusError so one flaky upstream cannot abort a whole run, and
// references that are not recognizable preprints come back unpublished.
func (c *Client) CheckPublicationStatus(ctx context.Context, rawURL string) domain.PreprintResolution {
	res := domain.PreprintResolution{
		OriginalURL: rawURL,
		Status:      domain.StatusUnpublished,
	}

	server, id, ok := identifyPreprint(rawURL)
	if !ok {
		return res
	}

	logger := c.logger.With().Str("server", server).Str("preprint_id", id).Logger()

	var (
		doi string
		err error
	)
	switch server {
	case serverArxiv:
		doi, err = c.checkArxiv(ctx, id)
	case serverBiorxiv:
		doi, err = c.checkBiorxiv(ctx, id)
	case serverChemrxiv:
		doi, err = c.checkChemrxiv(ctx, id)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("publication check failed")
		res.Status = domain.StatusError
		res.Err = err.Error()
		return res
	}
	if doi == "" {
		return res
	}

	res.Status = domain.StatusPublished
	res.PublishedDOI = doi
	res.PublishedURL = doiResolverPrefix + doi

	// The title is a nicety for review output; failing to fetch it does not
	// demote the resolution.
	if work, err := c.crossref.Work(ctx, doi); err == nil {
		res.Title = work.PrimaryTitle()
	} else {
		logger.Debug().Err(err).Str("doi", doi).Msg("published title lookup failed")
	}

	logger.Info().Str("published_doi", doi).Msg("preprint resolved to publication")
	return res
}

// checkArxiv resolves an arXiv identifier to a journal DOI. The arXiv record
// itself wins when authors registered a DOI; otherwise Europe PMC's accession
// index is consulted, then a Crossref title search.
func (c *Client) checkArxiv(ctx context.Context, id string) (string, error) {
	meta, err := c.arxiv.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if meta.DOI != "" {
		return meta.DOI, nil
	}

	articles, err := c.europepmc.Search(ctx, "ACCESSION:"+id, 0)
	if err != nil {
		return "", err
	}
	for _, a := range articles {
		if a.IsPreprint() || a.DOI == "" {
			continue
		}
		return a.DOI, nil
	}

	return c.titleFallback(ctx, meta.Title, "10.48550/arxiv."+id)
}

// checkBiorxiv resolves a bioRxiv or medRxiv DOI suffix. Both servers share
// the 10.1101 prefix, so each is asked in turn.
func (c *Client) checkBiorxiv(ctx context.Context, id string) (string, error) {
	doi := "10.1101/" + id
	for _, server := range []string{biorxiv.ServerBioRxiv, biorxiv.ServerMedRxiv} {
		published, err := c.biorxiv.Published(ctx, server, doi)
		if err != nil {
			return "", err
		}
		if published.IsSet() {
			return published.OrZero(), nil
		}
	}
	return "", nil
}

// checkChemrxiv resolves a ChemRxiv identifier. ChemRxiv has no public
// resolution API, so Europe PMC is asked for the preprint DOI first, then
// Crossref supplies the preprint title for a title search.
func (c *Client) checkChemrxiv(ctx context.Context, id string) (string, error) {
	preprintDOI := "10.26434/chemrxiv-" + id

	articles, err := c.europepmc.Search(ctx, fmt.Sprintf("DOI:%q", preprintDOI), 0)
	if err != nil {
		return "", err
	}
	for _, a := range articles {
		if a.IsPreprint() || a.DOI == "" {
			continue
		}
		return a.DOI, nil
	}

	work, err := c.crossref.Work(ctx, preprintDOI)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return c.titleFallback(ctx, work.PrimaryTitle(), preprintDOI)
}

// titleFallback searches Crossref for a work whose title exactly matches the
// preprint's, excluding the preprint's own DOI. Titles match case
// insensitively after trimming, which is as strict as Crossref's relevance
// ranking allows without false positives.
func (c *Client) titleFallback(ctx context.Context, title, excludeDOI string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil
	}

	for _, attempt := range titleSearchRows {
		query := title
		if attempt.quoted {
			query = `"` + title + `"`
		}
		works, err := c.crossref.Search(ctx, query, attempt.rows)
		if err != nil {
			return "", err
		}
		for _, w := range works {
			if w.DOI == "" || strings.EqualFold(w.DOI, excludeDOI) {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(w.PrimaryTitle()), title) {
				return w.DOI, nil
			}
		}
	}
	return "", nil
}
