package europepmc

// SearchResponse is the envelope of the Europe PMC search endpoint.
type SearchResponse struct {
	HitCount   int        `json:"hitCount"`
	ResultList ResultList `json:"resultList"`
}

// ResultList holds the records matching a search.
type ResultList struct {
	Result []Article `json:"result"`
}

// Article is the subset of a Europe PMC record the updater reads. Source is
// the indexing source code; "PPR" marks a preprint record rather than a
// published article.
type Article struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	DOI    string `json:"doi"`
	Title  string `json:"title"`
}

// IsPreprint reports whether the record indexes a preprint rather than a
// published article.
func (a *Article) IsPreprint() bool {
	return a.Source == "PPR"
}
