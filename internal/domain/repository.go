package domain

import "time"

// Repository holds source-hosting metadata fetched for one repository URL.
// Stars is always reported by the hosting API; the optional fields are
// present only when the API supplied them.
type Repository struct {
	URL           string
	Owner         string
	Name          string
	Stars         int64
	LastCommit    Field[time.Time]
	LastCommitAgo Field[string]
	License       Field[string]
	Language      Field[string]
}
