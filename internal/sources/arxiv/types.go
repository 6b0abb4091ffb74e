package arxiv

import "encoding/xml"

// Feed represents the Atom XML response from the arXiv API.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
}

// Entry represents a single arXiv paper in the Atom feed.
type Entry struct {
	ID    string `xml:"id"` // "http://arxiv.org/abs/2301.01234v1"
	Title string `xml:"title"`
	DOI   string `xml:"doi"`
}
