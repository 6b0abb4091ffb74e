package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/publication"
)

// repositoryUpdates builds the pending changes derived from repository
// hosting metadata. Stars and last-commit data are always refreshed; license,
// primary language, owner, and repo name are only filled when the record has
// no value yet. A fetch failure is recorded as a repository error and leaves
// the record in the run.
func (r *run) repositoryUpdates(ctx context.Context, rec *domain.PackageRecord) domain.FieldUpdateSet {
	var set domain.FieldUpdateSet

	repoURL, ok := rec.RepoURL.Get()
	if !ok || !strings.Contains(strings.ToLower(repoURL), "github.com") {
		return set
	}

	data, err := r.o.repos.RepositoryData(ctx, repoURL)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("record_id", rec.ID).
			Str("repo_url", repoURL).
			Msg("repository fetch failed")
		r.stats.RecordError(rec.ID, CategoryRepository, err.Error())
		return set
	}

	repo, ok := data.Get()
	if !ok {
		return set
	}

	set.Set(domain.FieldStars, repo.Stars, domain.SourceRepository)
	if commit, ok := repo.LastCommit.Get(); ok {
		set.Set(domain.FieldLastCommit, commit, domain.SourceRepository)
	}
	if ago, ok := repo.LastCommitAgo.Get(); ok {
		set.Set(domain.FieldLastCommitAgo, ago, domain.SourceRepository)
	}

	if license, ok := repo.License.Get(); ok && !rec.License.IsSet() {
		set.Set(domain.FieldLicense, license, domain.SourceRepository)
	}
	if language, ok := repo.Language.Get(); ok && !rec.Language.IsSet() {
		set.Set(domain.FieldLanguage, language, domain.SourceRepository)
	}
	if !rec.Owner.IsSet() && repo.Owner != "" {
		set.Set(domain.FieldOwner, repo.Owner, domain.SourceRepository)
	}
	if !rec.Repo.IsSet() && repo.Name != "" {
		set.Set(domain.FieldRepo, repo.Name, domain.SourceRepository)
	}

	if set.Len() > 0 {
		r.stats.AddGitHubDataUpdate()
	}
	return set
}

// publicationUpdates builds the pending changes derived from publication
// registries. A preprint that resolved to a published version overwrites the
// publication field, and the published URL is used for the remaining
// lookups. Citations are always refreshed for non-preprint identifiers;
// journal and impact factor are only filled when the record has no value
// yet. Citation and journal lookup failures are logged and skipped.
func (r *run) publicationUpdates(ctx context.Context, rec *domain.PackageRecord) domain.FieldUpdateSet {
	var set domain.FieldUpdateSet

	pubURL, ok := rec.Publication.Get()
	if !ok || pubURL == "" {
		return set
	}
	normalized := publication.NormalizeDOI(pubURL)
	if normalized == "" {
		return set
	}

	lookupURL := normalized
	if publication.IsPreprint(normalized) {
		res := r.o.pubs.CheckPublicationStatus(ctx, normalized)
		switch {
		case res.Published():
			r.logger.Info().
				Str("record_id", rec.ID).
				Str("preprint", normalized).
				Str("published_url", res.PublishedURL).
				Msg("preprint resolved to published version")
			set.Set(domain.FieldPublication, res.PublishedURL, domain.SourcePublication)
			lookupURL = res.PublishedURL
		case res.Status == domain.StatusError:
			r.stats.RecordError(rec.ID, CategoryPublication, res.Err)
		}
	}

	// Preprints without a published counterpart have no citation registry
	// entry to consult.
	if publication.IsPreprint(lookupURL) {
		return set
	}

	citations, err := r.o.pubs.Citations(ctx, lookupURL)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("record_id", rec.ID).
			Str("publication", lookupURL).
			Msg("citation lookup failed")
	} else if count, ok := citations.Get(); ok {
		set.Set(domain.FieldCitations, count, domain.SourcePublication)
		r.stats.AddCitationUpdate()
	}

	if !rec.Journal.IsSet() || !rec.JIF.IsSet() {
		info, err := r.o.pubs.Journal(ctx, lookupURL)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("record_id", rec.ID).
				Str("publication", lookupURL).
				Msg("journal lookup failed")
			return set
		}
		journal, ok := info.Get()
		if !ok {
			return set
		}

		if !rec.Journal.IsSet() && journal.Name != "" {
			set.Set(domain.FieldJournal, journal.Name, domain.SourcePublication)
		}
		if !rec.JIF.IsSet() {
			jif, err := r.o.pubs.ImpactFactor(ctx, journal)
			if err != nil {
				r.logger.Warn().Err(err).
					Str("record_id", rec.ID).
					Str("journal", journal.Name).
					Msg("impact factor lookup failed")
			} else if factor, ok := jif.Get(); ok {
				set.Set(domain.FieldJIF, factor, domain.SourcePublication)
			}
		}
	}

	return set
}

// captureChanges records one dry-run change entry per pending field update,
// pairing the record's current value with the pending one.
func (r *run) captureChanges(rec *domain.PackageRecord, set domain.FieldUpdateSet) {
	for _, u := range set.Updates() {
		r.stats.RecordChange(Change{
			RecordID: rec.ID,
			Name:     rec.DisplayName(),
			Field:    u.Field,
			Old:      currentValue(rec, u.Field),
			New:      formatValue(u.Value),
		})
	}
}

// currentValue renders the record's present value for an updatable field,
// empty when the field is unset or null.
func currentValue(rec *domain.PackageRecord, field string) string {
	switch field {
	case domain.FieldStars:
		return fieldString(rec.Stars)
	case domain.FieldLastCommit:
		return fieldString(rec.LastCommit)
	case domain.FieldLastCommitAgo:
		return fieldString(rec.LastCommitAgo)
	case domain.FieldLicense:
		return fieldString(rec.License)
	case domain.FieldLanguage:
		return fieldString(rec.Language)
	case domain.FieldOwner:
		return fieldString(rec.Owner)
	case domain.FieldRepo:
		return fieldString(rec.Repo)
	case domain.FieldPublication:
		return fieldString(rec.Publication)
	case domain.FieldCitations:
		return fieldString(rec.Citations)
	case domain.FieldJournal:
		return fieldString(rec.Journal)
	case domain.FieldJIF:
		return fieldString(rec.JIF)
	default:
		return ""
	}
}

func fieldString[T any](f domain.Field[T]) string {
	v, ok := f.Get()
	if !ok {
		return ""
	}
	return formatValue(v)
}

// formatValue renders an update value for change capture and export.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}
