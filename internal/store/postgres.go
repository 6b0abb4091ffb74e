package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
)

// DBTX is the query interface the Postgres backend runs against, satisfied
// by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a pgx connection pool against dsn and verifies it with a
// ping.
func Connect(ctx context.Context, dsn string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	logger.Debug().Str("store", BackendPostgres).Msg("connected to postgres")
	return pool, nil
}

// PostgresConfig holds settings for the direct Postgres backend.
type PostgresConfig struct {
	// Table is the catalog table name. Defaults to DefaultTable.
	Table string
}

// PostgresStore reads and writes the catalog over a direct Postgres
// connection.
type PostgresStore struct {
	db     DBTX
	table  string
	logger zerolog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres creates a Postgres-backed store on top of an existing pool or
// transaction.
func NewPostgres(db DBTX, cfg PostgresConfig, logger zerolog.Logger) *PostgresStore {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{
		db:     db,
		table:  table,
		logger: logger.With().Str("store", BackendPostgres).Logger(),
	}
}

// Name implements Store.
func (s *PostgresStore) Name() string {
	return BackendPostgres
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, sel Selection, offset, limit int) ([]domain.PackageRecord, error) {
	var (
		where []string
		args  []any
	)
	if len(sel.IDs) > 0 {
		args = append(args, sel.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if !sel.UpdatedBefore.IsZero() {
		args = append(args, sel.UpdatedBefore.UTC())
		where = append(where, fmt.Sprintf("last_updated < $%d", len(args)))
	}
	if sel.RepoHostOnly {
		where = append(where, "repo_link IS NOT NULL AND repo_link LIKE '%github.com%'")
	}
	if sel.WithPublication {
		where = append(where, "publication IS NOT NULL")
	}

	query := "SELECT " + recordColumns + " FROM " + s.tableIdent()
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if limit > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("list", "", err)
	}
	defer rows.Close()

	var records []domain.PackageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.NewStoreError("list", "", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("list", "", err)
	}
	return records, nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, id string, set domain.FieldUpdateSet) error {
	if id == "" {
		return fmt.Errorf("%w: empty record id", domain.ErrInvalidInput)
	}

	args := []any{id}
	assignments := make([]string, 0, set.Len()+1)
	for _, u := range set.Updates() {
		value, err := pgValue(u.Value)
		if err != nil {
			return domain.NewStoreError("update", id, err)
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", columnFor(u.Field), len(args)))
	}
	args = append(args, time.Now().UTC())
	assignments = append(assignments, fmt.Sprintf("last_updated = $%d", len(args)))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING id",
		s.tableIdent(), strings.Join(assignments, ", "))

	var returned string
	err := s.db.QueryRow(ctx, query, args...).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError("package", id)
	}
	if err != nil {
		return domain.NewStoreError("update", id, err)
	}

	s.logger.Debug().Str("id", id).Int("fields", set.Len()).Msg("record updated")
	return nil
}

func (s *PostgresStore) tableIdent() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// scanRecord reads one catalog row in recordColumns order. SQL NULLs map to
// the null field state; selected columns can never be unset.
func scanRecord(row pgx.Row) (domain.PackageRecord, error) {
	var (
		id            string
		packageName   *string
		repoLink      *string
		publication   *string
		webserver     *string
		link          *string
		folder        *string
		category      *string
		description   *string
		pageIcon      *string
		tags          []byte
		stars         *int64
		lastCommit    *time.Time
		lastCommitAgo *string
		license       *string
		language      *string
		owner         *string
		repo          *string
		citations     *int64
		journal       *string
		jif           *float64
		averageRating *float64
		ratingsCount  *int64
		ratingSum     *int64
		lastUpdated   *time.Time
	)

	err := row.Scan(&id, &packageName, &repoLink, &publication, &webserver, &link,
		&folder, &category, &description, &pageIcon, &tags, &stars,
		&lastCommit, &lastCommitAgo, &license, &language, &owner,
		&repo, &citations, &journal, &jif, &averageRating, &ratingsCount,
		&ratingSum, &lastUpdated)
	if err != nil {
		return domain.PackageRecord{}, err
	}

	return domain.PackageRecord{
		ID:            id,
		Name:          fromPtr(packageName),
		RepoURL:       fromPtr(repoLink),
		Publication:   fromPtr(publication),
		Webserver:     fromPtr(webserver),
		Link:          fromPtr(link),
		Folder:        fromPtr(folder),
		Category:      fromPtr(category),
		Description:   fromPtr(description),
		PageIcon:      fromPtr(pageIcon),
		Tags:          decodeTags(tags),
		Stars:         fromPtr(stars),
		LastCommit:    fromTimePtr(lastCommit),
		LastCommitAgo: fromPtr(lastCommitAgo),
		License:       fromPtr(license),
		Language:      fromPtr(language),
		Owner:         fromPtr(owner),
		Repo:          fromPtr(repo),
		Citations:     fromPtr(citations),
		Journal:       fromPtr(journal),
		JIF:           fromPtr(jif),
		AverageRating: fromPtr(averageRating),
		RatingsCount:  fromPtr(ratingsCount),
		RatingSum:     fromPtr(ratingSum),
		LastUpdated:   fromTimePtr(lastUpdated),
	}, nil
}

func fromPtr[T any](p *T) domain.Field[T] {
	if p == nil {
		return domain.Null[T]()
	}
	return domain.Set(*p)
}

func fromTimePtr(p *time.Time) domain.Field[time.Time] {
	if p == nil {
		return domain.Null[time.Time]()
	}
	return domain.Set(p.UTC())
}

// pgValue adapts update values for pgx: tags travel as JSON so the column
// type stays jsonb.
func pgValue(v any) (any, error) {
	switch val := v.(type) {
	case []string:
		if val == nil {
			val = []string{}
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encoding tags: %w", err)
		}
		return encoded, nil
	default:
		return v, nil
	}
}
