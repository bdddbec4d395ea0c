// Package sqlitestore is a BeanStore backed by a SQLite database file. It is
// the backend for large projects and evaluates text search in SQL.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
CREATE TABLE IF NOT EXISTS beans (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	slug       TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	type       TEXT NOT NULL,
	priority   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	parent_id  TEXT NOT NULL DEFAULT '',
	blocking   TEXT NOT NULL DEFAULT '[]',
	blocked_by TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_beans_status ON beans(status);
CREATE INDEX IF NOT EXISTS idx_beans_parent ON beans(parent_id);
`

const columns = `id, slug, title, status, type, priority, tags, parent_id, blocking, blocked_by, body, created_at, updated_at, version`

// Store is a SQLite bean store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

var (
	_ store.BeanStore = (*Store)(nil)
	_ store.Searcher  = (*Store)(nil)
)

// SupportsSearch is true: List evaluates Search with LIKE.
func (s *Store) SupportsSearch() bool { return true }

// List returns the beans matching f in insertion order.
func (s *Store) List(ctx context.Context, f model.ListFilter) ([]model.Bean, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Status) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Status))+")")
		for _, st := range f.Status {
			args = append(args, string(st))
		}
	}
	if len(f.Type) > 0 {
		where = append(where, "type IN ("+placeholders(len(f.Type))+")")
		for _, t := range f.Type {
			args = append(args, string(t))
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		like := "%" + escapeLike(q) + "%"
		// Matches the fields filter.MatchesText reads: unset priority is
		// normal, and tags match one by one rather than as JSON text.
		where = append(where, `(lower(id) LIKE ? ESCAPE '\' OR lower(slug) LIKE ? ESCAPE '\' OR lower(title) LIKE ? ESCAPE '\'
			OR lower(body) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(beans.tags) WHERE lower(json_each.value) LIKE ? ESCAPE '\')
			OR lower(COALESCE(NULLIF(priority, ''), 'normal')) LIKE ? ESCAPE '\'
			OR lower(status) LIKE ? ESCAPE '\' OR lower(type) LIKE ? ESCAPE '\')`)
		for i := 0; i < 8; i++ {
			args = append(args, like)
		}
	}

	query := "SELECT " + columns + " FROM beans"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing beans: %w", err)
	}
	defer rows.Close()

	var out []model.Bean
	for rows.Next() {
		b, _, err := scanBean(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing beans: %w", err)
	}
	return out, nil
}

// Show returns one bean.
func (s *Store) Show(ctx context.Context, id string) (model.Bean, error) {
	b, _, err := s.get(ctx, s.db, id)
	return b, err
}

// Update validates and applies patch in a transaction. A row changed by
// another writer since it was read fails with ErrConflict.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Bean, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Bean{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	cur, version, err := s.get(ctx, tx, id)
	if err != nil {
		return model.Bean{}, err
	}
	var lookupErr error
	lookup := func(ref string) (model.Bean, bool) {
		b, _, err := s.get(ctx, tx, ref)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			lookupErr = err
		}
		return b, err == nil
	}
	if err := store.ValidatePatch(cur, patch, lookup); err != nil {
		if lookupErr != nil {
			return model.Bean{}, lookupErr
		}
		return model.Bean{}, err
	}

	next := patch.Apply(cur)
	next.UpdatedAt = s.now().UTC()
	tags, blocking, blockedBy, err := encodeLists(next)
	if err != nil {
		return model.Bean{}, err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE beans SET status = ?, type = ?, priority = ?, parent_id = ?, tags = ?,
			blocking = ?, blocked_by = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(next.Status), string(next.Type), string(next.Priority), next.ParentID, tags,
		blocking, blockedBy, formatTime(next.UpdatedAt), id, version)
	if err != nil {
		return model.Bean{}, fmt.Errorf("updating %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Bean{}, fmt.Errorf("%s: %w", id, store.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return model.Bean{}, fmt.Errorf("committing %s: %w", id, err)
	}
	return next, nil
}

// Import inserts or replaces beans, keeping the position of existing ids.
func (s *Store) Import(ctx context.Context, beans []model.Bean) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO beans (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET slug = excluded.slug, title = excluded.title,
			status = excluded.status, type = excluded.type, priority = excluded.priority,
			tags = excluded.tags, parent_id = excluded.parent_id, blocking = excluded.blocking,
			blocked_by = excluded.blocked_by, body = excluded.body, created_at = excluded.created_at,
			updated_at = excluded.updated_at, version = beans.version + 1`)
	if err != nil {
		return fmt.Errorf("preparing import: %w", err)
	}
	defer stmt.Close()

	for _, b := range beans {
		if b.ID == "" {
			continue
		}
		tags, blocking, blockedBy, err := encodeLists(b)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, b.ID, b.Slug, b.Title, string(b.Status), string(b.Type),
			string(b.Priority), tags, b.ParentID, blocking, blockedBy, b.Body,
			formatTime(b.CreatedAt), formatTime(b.UpdatedAt)); err != nil {
			return fmt.Errorf("importing %s: %w", b.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) get(ctx context.Context, q queryer, id string) (model.Bean, int64, error) {
	row := q.QueryRowContext(ctx, "SELECT "+columns+" FROM beans WHERE id = ?", id)
	b, version, err := scanBean(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bean{}, 0, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return b, version, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBean(sc scanner) (model.Bean, int64, error) {
	var b model.Bean
	var status, typ, priority string
	var tags, blocking, blockedBy string
	var createdAt, updatedAt string
	var version int64
	if err := sc.Scan(&b.ID, &b.Slug, &b.Title, &status, &typ, &priority, &tags, &b.ParentID,
		&blocking, &blockedBy, &b.Body, &createdAt, &updatedAt, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bean{}, 0, err
		}
		return model.Bean{}, 0, fmt.Errorf("reading bean row: %w", err)
	}
	b.Status = model.Status(status)
	b.Type = model.Type(typ)
	b.Priority = model.Priority(priority)
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{tags, &b.Tags}, {blocking, &b.BlockingIDs}, {blockedBy, &b.BlockedByIDs}} {
		if err := decodeList(f.raw, f.dst); err != nil {
			return model.Bean{}, 0, fmt.Errorf("bean %s: %w", b.ID, err)
		}
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, version, nil
}

func encodeLists(b model.Bean) (tags, blocking, blockedBy string, err error) {
	enc := func(v []string) (string, error) {
		if len(v) == 0 {
			return "[]", nil
		}
		data, err := json.Marshal(v)
		return string(data), err
	}
	if tags, err = enc(b.Tags); err != nil {
		return
	}
	if blocking, err = enc(b.BlockingIDs); err != nil {
		return
	}
	blockedBy, err = enc(b.BlockedByIDs)
	return
}

func decodeList(raw string, dst *[]string) error {
	if raw == "" || raw == "[]" {
		*dst = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
