package publication

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/sources/arxiv"
	"github.com/caddvault/vault-updater/internal/sources/crossref"
	"github.com/caddvault/vault-updater/internal/sources/europepmc"
)

const defaultCacheSize = 1024

// ArxivSource fetches preprint metadata from the arXiv API.
type ArxivSource interface {
	Metadata(ctx context.Context, id string) (*arxiv.Metadata, error)
}

// BiorxivSource resolves published DOIs for bioRxiv and medRxiv preprints.
type BiorxivSource interface {
	Published(ctx context.Context, server, doi string) (domain.Field[string], error)
}

// EuropePMCSource searches the Europe PMC literature index.
type EuropePMCSource interface {
	Search(ctx context.Context, query string, pageSize int) ([]europepmc.Article, error)
}

// CrossrefSource looks up and searches Crossref works.
type CrossrefSource interface {
	Work(ctx context.Context, doi string) (*crossref.Work, error)
	Search(ctx context.Context, query string, rows int) ([]crossref.Work, error)
}

// Classifier maps a journal name to its impact factor.
type Classifier interface {
	ImpactFactor(ctx context.Context, journal string) (domain.Field[float64], error)
}

// Config holds tunables for the publication client.
type Config struct {
	// CacheSize bounds the impact factor cache. Zero means the default.
	CacheSize int
}

func (c *Config) applyDefaults() {
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
}

// Dependencies carries the external sources the client consults. Classifier
// may be nil, in which case impact factor lookups report no value.
type Dependencies struct {
	Arxiv      ArxivSource
	Biorxiv    BiorxivSource
	EuropePMC  EuropePMCSource
	Crossref   CrossrefSource
	Classifier Classifier
}

// Client answers publication questions about catalog entries. It is safe for
// concurrent use.
type Client struct {
	arxiv      ArxivSource
	biorxiv    BiorxivSource
	europepmc  EuropePMCSource
	crossref   CrossrefSource
	classifier Classifier

	jifCache *lru.Cache[string, float64]
	logger   zerolog.Logger
}

// New creates a publication client from its dependencies.
func New(cfg Config, deps Dependencies, logger zerolog.Logger) (*Client, error) {
	cfg.applyDefaults()

	cache, err := lru.New[string, float64](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		arxiv:      deps.Arxiv,
		biorxiv:    deps.Biorxiv,
		europepmc:  deps.EuropePMC,
		crossref:   deps.Crossref,
		classifier: deps.Classifier,
		jifCache:   cache,
		logger:     logger.With().Str("component", "publication").Logger(),
	}, nil
}
