package domain

import "time"

// Canonical field names carried in FieldUpdateSet entries. These are the
// pipeline's internal names; the store mapper owns the translation to and
// from store column names.
const (
	FieldStars         = "github_stars"
	FieldLastCommit    = "last_commit"
	FieldLastCommitAgo = "last_commit_ago"
	FieldLicense       = "license"
	FieldLanguage      = "primary_language"
	FieldOwner         = "github_owner"
	FieldRepo          = "github_repo"
	FieldPublication   = "publication_url"
	FieldCitations     = "citations"
	FieldJournal       = "journal"
	FieldJIF           = "jif"
	FieldTags          = "tags"
)

// PackageRecord is one entry in the vault catalog. The identifier is the
// immutable primary key; every other field may be missing until first
// populated. Rating aggregates are owned by the rating subsystem and are
// never written by the update pipeline.
type PackageRecord struct {
	ID          string
	Name        Field[string]
	RepoURL     Field[string]
	Publication Field[string]
	Webserver   Field[string]
	Link        Field[string]
	Folder      Field[string]
	Category    Field[string]
	Description Field[string]
	PageIcon    Field[string]
	Tags        []string

	Stars         Field[int64]
	LastCommit    Field[time.Time]
	LastCommitAgo Field[string]
	License       Field[string]
	Language      Field[string]
	Owner         Field[string]
	Repo          Field[string]

	Citations Field[int64]
	Journal   Field[string]
	JIF       Field[float64]

	AverageRating Field[float64]
	RatingsCount  Field[int64]
	RatingSum     Field[int64]

	LastUpdated Field[time.Time]
}

// DisplayName returns the package name for logs and exports, falling back to
// a placeholder when the name is missing.
func (r *PackageRecord) DisplayName() string {
	if name, ok := r.Name.Get(); ok && name != "" {
		return name
	}
	return "Unknown"
}
