package biorxiv

// PubsResponse is the envelope of the /pubs endpoint.
type PubsResponse struct {
	Collection []PublishedRecord `json:"collection"`
}

// PublishedRecord links a preprint DOI to its published counterpart.
type PublishedRecord struct {
	PreprintDOI   string `json:"preprint_doi"`
	PublishedDOI  string `json:"published_doi"`
	PublishedDate string `json:"published_date"`
}
