package crossref

// Work is the subset of a Crossref work record the updater reads.
type Work struct {
	DOI                 string   `json:"DOI"`
	Title               []string `json:"title"`
	ContainerTitle      []string `json:"container-title"`
	ISSN                []string `json:"ISSN"`
	IsReferencedByCount int64    `json:"is-referenced-by-count"`
}

// PrimaryTitle returns the first title of the work, or "" when it has none.
func (w *Work) PrimaryTitle() string {
	if len(w.Title) == 0 {
		return ""
	}
	return w.Title[0]
}

// WorkResponse is the envelope of the /works/{doi} endpoint.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// SearchResponse is the envelope of the /works search endpoint.
type SearchResponse struct {
	Status  string        `json:"status"`
	Message SearchMessage `json:"message"`
}

// SearchMessage holds the result list of a works search.
type SearchMessage struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}
