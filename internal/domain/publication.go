package domain

// PublicationStatus describes the outcome of a preprint resolution check.
type PublicationStatus string

const (
	// StatusUnpublished means no peer-reviewed counterpart was found.
	StatusUnpublished PublicationStatus = "unpublished"

	// StatusPublished means a peer-reviewed counterpart was resolved.
	StatusPublished PublicationStatus = "published"

	// StatusError means the check itself failed; the record is treated as
	// unpublished for the rest of the run.
	StatusError PublicationStatus = "error"
)

// PreprintResolution is the transient result of checking whether a preprint
// has a peer-reviewed counterpart. It lives only for the duration of one
// record's publication processing.
type PreprintResolution struct {
	OriginalURL  string
	PublishedDOI string
	PublishedURL string
	Title        string
	Status       PublicationStatus
	Err          string
}

// Published reports whether the check resolved a peer-reviewed version with
// a usable identifier.
func (r PreprintResolution) Published() bool {
	return r.Status == StatusPublished && r.PublishedURL != ""
}

// JournalInfo is the journal identity attached to a published work.
type JournalInfo struct {
	Name string
	ISSN string
}
