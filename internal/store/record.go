package store

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/caddvault/vault-updater/internal/domain"
)

// recordColumns is the catalog column list, in the order the Postgres
// backend selects and scans them.
const recordColumns = `id, package_name, repo_link, publication, webserver, link, ` +
	`folder1, category1, description, page_icon, tags, github_stars, ` +
	`last_commit, last_commit_ago, license, primary_language, github_owner, ` +
	`github_repo, citations, journal, jif, average_rating, ratings_count, ` +
	`ratings_sum, last_updated`

// columnRenames maps internal field names to store columns where the two
// disagree. Every other field name doubles as its column name.
var columnRenames = map[string]string{
	domain.FieldPublication: "publication",
}

// columnFor translates an internal field name to its store column.
func columnFor(field string) string {
	if renamed, ok := columnRenames[field]; ok {
		return renamed
	}
	return field
}

// rawRecord mirrors the store's JSON column layout for one catalog row.
// Field values keep the absent/null/value distinction; timestamps arrive as
// RFC 3339 strings and are parsed on conversion.
type rawRecord struct {
	ID            string                `json:"id"`
	PackageName   domain.Field[string]  `json:"package_name"`
	RepoLink      domain.Field[string]  `json:"repo_link"`
	Publication   domain.Field[string]  `json:"publication"`
	Webserver     domain.Field[string]  `json:"webserver"`
	Link          domain.Field[string]  `json:"link"`
	Folder        domain.Field[string]  `json:"folder1"`
	Category      domain.Field[string]  `json:"category1"`
	Description   domain.Field[string]  `json:"description"`
	PageIcon      domain.Field[string]  `json:"page_icon"`
	Tags          json.RawMessage       `json:"tags"`
	Stars         domain.Field[int64]   `json:"github_stars"`
	LastCommit    domain.Field[string]  `json:"last_commit"`
	LastCommitAgo domain.Field[string]  `json:"last_commit_ago"`
	License       domain.Field[string]  `json:"license"`
	Language      domain.Field[string]  `json:"primary_language"`
	Owner         domain.Field[string]  `json:"github_owner"`
	Repo          domain.Field[string]  `json:"github_repo"`
	Citations     domain.Field[int64]   `json:"citations"`
	Journal       domain.Field[string]  `json:"journal"`
	JIF           domain.Field[float64] `json:"jif"`
	AverageRating domain.Field[float64] `json:"average_rating"`
	RatingsCount  domain.Field[int64]   `json:"ratings_count"`
	RatingSum     domain.Field[int64]   `json:"ratings_sum"`
	LastUpdated   domain.Field[string]  `json:"last_updated"`
}

// toDomain converts a raw store row into the pipeline's record type.
func (r rawRecord) toDomain() domain.PackageRecord {
	return domain.PackageRecord{
		ID:            r.ID,
		Name:          r.PackageName,
		RepoURL:       r.RepoLink,
		Publication:   r.Publication,
		Webserver:     r.Webserver,
		Link:          r.Link,
		Folder:        r.Folder,
		Category:      r.Category,
		Description:   r.Description,
		PageIcon:      r.PageIcon,
		Tags:          decodeTags(r.Tags),
		Stars:         r.Stars,
		LastCommit:    parseTimeField(r.LastCommit),
		LastCommitAgo: r.LastCommitAgo,
		License:       r.License,
		Language:      r.Language,
		Owner:         r.Owner,
		Repo:          r.Repo,
		Citations:     r.Citations,
		Journal:       r.Journal,
		JIF:           r.JIF,
		AverageRating: r.AverageRating,
		RatingsCount:  r.RatingsCount,
		RatingSum:     r.RatingSum,
		LastUpdated:   parseTimeField(r.LastUpdated),
	}
}

// decodeTags tolerates the two shapes tags arrive in: a JSON array, or a
// string holding a JSON-encoded array. Parse failures yield empty tags.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err == nil {
		return tags
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &tags); err == nil {
			return tags
		}
	}
	return []string{}
}

// parseTimeField parses an RFC 3339 timestamp field, carrying the
// absent/null states through. Unparseable values become unset.
func parseTimeField(f domain.Field[string]) domain.Field[time.Time] {
	if f.IsNull() {
		return domain.Null[time.Time]()
	}
	s, ok := f.Get()
	if !ok {
		return domain.Field[time.Time]{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return domain.Field[time.Time]{}
	}
	return domain.Set(t.UTC())
}

// updatePayload renders a field update set as the store's column map,
// stamping last_updated. Fields with nothing to say are simply absent, never
// explicit nulls.
func updatePayload(set domain.FieldUpdateSet, now time.Time) map[string]any {
	payload := make(map[string]any, set.Len()+1)
	for _, u := range set.Updates() {
		payload[columnFor(u.Field)] = payloadValue(u.Value)
	}
	payload["last_updated"] = now.UTC().Format(time.RFC3339)
	return payload
}

// payloadValue normalizes an update value for the wire: timestamps as
// RFC 3339 UTC strings, tags always as an array.
func payloadValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []string:
		if val == nil {
			return []string{}
		}
		return val
	default:
		return v
	}
}
