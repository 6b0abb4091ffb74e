// Package publication resolves publication metadata for catalog entries:
// preprint-to-journal resolution, DOI normalization, citation counts,
// journal identity, and impact factor lookups.
package publication

import (
	"net/url"
	"regexp"
	"strings"
)

const doiResolverPrefix = "https://doi.org/"

var (
	// doiTail extracts a DOI embedded at the end of a non-resolver URL.
	doiTail = regexp.MustCompile(`(10\.\d+/.+)$`)

	// Suffix cruft stripped from scraped DOIs, applied to a fixed point:
	// version markers, landing-page suffixes, file extensions, stray
	// brackets, and trailing punctuation.
	versionSuffix = regexp.MustCompile(`v\d+(?:\.full)?$`)
	fullSuffix    = regexp.MustCompile(`\.full$`)
	fileExtSuffix = regexp.MustCompile(`\.(?:svg|pdf|html)$`)
	bracketSuffix = regexp.MustCompile(`[\[\(\{\]\)\}]+$`)
	punctSuffix   = regexp.MustCompile(`[.:\-/\\]+$`)

	// doiDisallowed matches characters that can never appear in the DOIs
	// this catalog links, left behind by markdown and URL encoding.
	doiDisallowed = regexp.MustCompile(`[^a-zA-Z0-9.\-/_:]`)
)

// NormalizeDOI canonicalizes a publication reference into a DOI resolver
// URL. Values embedding a DOI (resolver URLs, bare DOIs, article URLs with a
// DOI tail) come back as "https://doi.org/<cleaned doi>"; other URLs pass
// through unchanged; anything else normalizes to "". The function is
// idempotent.
func NormalizeDOI(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	var doi string
	switch {
	case strings.Contains(s, "doi.org/"):
		parts := strings.Split(s, "doi.org/")
		doi = parts[len(parts)-1]
	case isHTTPURL(s):
		m := doiTail.FindStringSubmatch(s)
		if m == nil {
			return s
		}
		doi = m[1]
	case strings.HasPrefix(s, "10."):
		doi = s
	default:
		return ""
	}

	doi = cleanDOI(doi)
	if !strings.HasPrefix(doi, "10.") {
		return ""
	}
	return doiResolverPrefix + doi
}

// cleanDOI strips scraping cruft from the end of a DOI until no rule
// applies. Each pass drops query strings and fragments, then the trailing
// suffix patterns, so stacked cruft like "v2.full.pdf)" unwinds fully.
func cleanDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for {
		prev := doi

		if i := strings.IndexAny(doi, "?#"); i >= 0 {
			doi = doi[:i]
		}
		doi = versionSuffix.ReplaceAllString(doi, "")
		doi = fullSuffix.ReplaceAllString(doi, "")
		doi = fileExtSuffix.ReplaceAllString(doi, "")
		doi = bracketSuffix.ReplaceAllString(doi, "")
		doi = punctSuffix.ReplaceAllString(doi, "")

		if doi == prev {
			return doi
		}
	}
}

// ExtractDOI pulls a bare DOI out of a resolver URL or DOI-shaped string for
// metadata lookups. Returns "" when the input carries no DOI.
func ExtractDOI(rawURL string) string {
	doi := strings.TrimSpace(rawURL)
	if doi == "" {
		return ""
	}

	if idx := strings.LastIndex(doi, "doi.org/"); idx >= 0 {
		doi = doi[idx+len("doi.org/"):]
	}
	doi = strings.TrimRight(doi, ")].")
	if decoded, err := url.QueryUnescape(doi); err == nil {
		doi = decoded
	}
	doi = doiDisallowed.ReplaceAllString(doi, "")

	if !strings.HasPrefix(doi, "10.") {
		return ""
	}
	return doi
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
