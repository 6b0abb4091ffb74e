package publication

import (
	"regexp"
	"strings"
)

// Preprint server identifiers produced by identifyPreprint.
const (
	serverArxiv    = "arxiv"
	serverBiorxiv  = "biorxiv"
	serverChemrxiv = "chemrxiv"
)

// preprintHosts marks references that point at a preprint server or an
// archive rather than a journal publication.
var preprintHosts = []string{"arxiv", "biorxiv", "medrxiv", "chemrxiv", "zenodo"}

// IsPreprint reports whether the reference points at a known preprint server.
func IsPreprint(rawURL string) bool {
	s := strings.ToLower(rawURL)
	for _, host := range preprintHosts {
		if strings.Contains(s, host) {
			return true
		}
	}
	return false
}

// preprintPattern maps one recognizable reference shape to its server. The
// capture group yields the server-local preprint identifier.
type preprintPattern struct {
	server string
	re     *regexp.Regexp
}

// preprintPatterns is ordered: DOI forms are tried before URL forms so a
// resolver URL carrying a DOI is identified by the DOI, and the first match
// wins.
var preprintPatterns = []preprintPattern{
	{serverArxiv, regexp.MustCompile(`10\.48550/arxiv\.(.+?)(?:v\d+)?$`)},
	{serverArxiv, regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d+\.\d+)`)},
	{serverChemrxiv, regexp.MustCompile(`10\.26434/chemrxiv[.-](.+?)(?:/|$)`)},
	{serverChemrxiv, regexp.MustCompile(`chemrxiv\.org/(?:engage/)?(?:api/)?(?:download|viewer)?[^/]*/(\d+|[a-z0-9-]+)`)},
	{serverBiorxiv, regexp.MustCompile(`10\.1101/(.+?)(?:/|$)`)},
	{serverBiorxiv, regexp.MustCompile(`biorxiv\.org/content/([^/]+)`)},
}

// identifyPreprint recognizes the preprint server and server-local identifier
// behind a reference. ok is false when no known shape matches.
func identifyPreprint(rawURL string) (server, id string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	if s == "" {
		return "", "", false
	}
	for _, p := range preprintPatterns {
		if m := p.re.FindStringSubmatch(s); m != nil {
			return p.server, m[1], true
		}
	}
	return "", "", false
}
