package driver

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteDriver stores the family graph in a single SQLite file.
type SQLiteDriver struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteDriver opens (creating if needed) the database at path with foreign
// keys enforced and WAL journaling so readers run alongside the writer.
func NewSQLiteDriver(path string) (*SQLiteDriver, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}

	logger.Debug("Opened SQLite store", "path", path)
	return &SQLiteDriver{db: db, path: path, now: time.Now}, nil
}

// sqliteDSN builds a file: URI so that '?', '#' and '%' in the path are
// escaped rather than read as URI delimiters.
func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")
	u := url.URL{Scheme: "file", OmitHost: true, Path: path, RawQuery: params.Encode()}
	return u.String()
}

// BuildIndices applies the embedded schema migrations.
func (d *SQLiteDriver) BuildIndices(ctx context.Context) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: load migrations: %w", err)
	}
	target, err := migratesqlite.WithInstance(d.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", target)
	if err != nil {
		return fmt.Errorf("sqlite: migrator: %w", err)
	}
	// m.Close would also close d.db; only release the source.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		logger.Debug("Schema ready", "version", version, "dirty", dirty)
	}
	return nil
}

func (d *SQLiteDriver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *SQLiteDriver) Close(ctx context.Context) error {
	return d.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (d *SQLiteDriver) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (d *SQLiteDriver) UpsertPersons(ctx context.Context, batch []model.Person) (PersonUpsertResult, error) {
	persons := collapsePersons(batch)
	res := PersonUpsertResult{Known: mapset.NewThreadUnsafeSet[string]()}
	now := formatTime(d.now())

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, sqlUpsertPerson)
		if err != nil {
			return fmt.Errorf("sqlite: prepare person upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range persons {
			meta, err := encodeMetadata(p.Metadata)
			if err != nil {
				return fmt.Errorf("sqlite: person %s: %w", p.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, p.ID, p.GivenName, p.FamilyName, p.BirthDate, meta, now, now); err != nil {
				return fmt.Errorf("sqlite: upsert person %s: %w", p.ID, err)
			}
		}

		ids, err := queryIDs(ctx, tx)
		if err != nil {
			return err
		}
		res.Known.Append(ids...)
		return nil
	})
	if err != nil {
		return PersonUpsertResult{}, err
	}
	res.Written = len(persons)
	return res, nil
}

func (d *SQLiteDriver) UpsertEdges(ctx context.Context, pairs []model.Edge, known mapset.Set[string]) (EdgeUpsertResult, error) {
	valid, rejected, missing := PartitionEdges(pairs, known)
	res := EdgeUpsertResult{Rejected: rejected, MissingIDs: missing}

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, sqlInsertEdge)
		if err != nil {
			return fmt.Errorf("sqlite: prepare edge insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range valid {
			r, err := stmt.ExecContext(ctx, e.Parent, e.Child)
			if err != nil {
				return fmt.Errorf("sqlite: insert edge %s->%s: %w", e.Parent, e.Child, err)
			}
			if n, err := r.RowsAffected(); err == nil {
				res.Stored += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return EdgeUpsertResult{}, err
	}
	return res, nil
}

func (d *SQLiteDriver) ReplaceClosure(ctx context.Context, entries []model.ClosureEntry) (int, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlDeleteClosure); err != nil {
			return fmt.Errorf("sqlite: delete closure: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, sqlInsertClosure)
		if err != nil {
			return fmt.Errorf("sqlite: prepare closure insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Ancestor, e.Descendant, e.Depth); err != nil {
				return fmt.Errorf("sqlite: insert closure %s->%s: %w", e.Ancestor, e.Descendant, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (d *SQLiteDriver) Clear(ctx context.Context) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range sqlClear {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("sqlite: clear: %w", err)
			}
		}
		return nil
	})
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryIDs(ctx context.Context, q queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, sqlPersonIDs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list person ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan person id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *SQLiteDriver) PersonIDs(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, d.db)
}

func (d *SQLiteDriver) Edges(ctx context.Context) ([]model.Edge, error) {
	rows, err := d.db.QueryContext(ctx, sqlEdges)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list edges: %w", err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		if err := rows.Scan(&e.Parent, &e.Child); err != nil {
			return nil, fmt.Errorf("sqlite: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (d *SQLiteDriver) ClosureEntries(ctx context.Context) ([]model.ClosureEntry, error) {
	rows, err := d.db.QueryContext(ctx, sqlClosureEntries)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list closure: %w", err)
	}
	defer rows.Close()

	var entries []model.ClosureEntry
	for rows.Next() {
		var e model.ClosureEntry
		if err := rows.Scan(&e.Ancestor, &e.Descendant, &e.Depth); err != nil {
			return nil, fmt.Errorf("sqlite: scan closure: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPerson reads the personColumns projection, followed by any extra
// destinations.
func scanPerson(s rowScanner, extra ...any) (model.Person, error) {
	var (
		p                     model.Person
		given, family, birth  sql.NullString
		meta, created, update string
	)
	dest := append([]any{&p.ID, &given, &family, &birth, &meta, &created, &update}, extra...)
	if err := s.Scan(dest...); err != nil {
		return model.Person{}, err
	}
	p.GivenName = nullable(given)
	p.FamilyName = nullable(family)
	p.BirthDate = nullable(birth)
	p.Metadata = decodeMetadata(meta)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(update)
	return p, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (d *SQLiteDriver) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	p, err := scanPerson(d.db.QueryRowContext(ctx, sqlGetPerson, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get person %s: %w", id, err)
	}
	return &p, nil
}

func (d *SQLiteDriver) queryPersons(ctx context.Context, query, id string) ([]model.Person, error) {
	rows, err := d.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query family of %s: %w", id, err)
	}
	defer rows.Close()

	persons := []model.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

func (d *SQLiteDriver) Parents(ctx context.Context, id string) ([]model.Person, error) {
	return d.queryPersons(ctx, sqlParents, id)
}

func (d *SQLiteDriver) Children(ctx context.Context, id string) ([]model.Person, error) {
	return d.queryPersons(ctx, sqlChildren, id)
}

func (d *SQLiteDriver) queryRelatives(ctx context.Context, query, id string) ([]model.RelativeAtDepth, error) {
	rows, err := d.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query relatives of %s: %w", id, err)
	}
	defer rows.Close()

	relatives := []model.RelativeAtDepth{}
	for rows.Next() {
		var depth int
		p, err := scanPerson(rows, &depth)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan relative: %w", err)
		}
		relatives = append(relatives, model.RelativeAtDepth{Person: p, Depth: depth})
	}
	return relatives, rows.Err()
}

func (d *SQLiteDriver) Descendants(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	return d.queryRelatives(ctx, sqlDescendants, id)
}

func (d *SQLiteDriver) Ancestors(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	return d.queryRelatives(ctx, sqlAncestors, id)
}

func (d *SQLiteDriver) Search(ctx context.Context, query string, limit int) ([]model.PersonSummary, error) {
	like := likePattern(query)
	rows, err := d.db.QueryContext(ctx, sqlSearch, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	defer rows.Close()

	results := []model.PersonSummary{}
	for rows.Next() {
		var (
			s                    model.PersonSummary
			given, family, birth sql.NullString
		)
		if err := rows.Scan(&s.ID, &given, &family, &birth); err != nil {
			return nil, fmt.Errorf("sqlite: scan search row: %w", err)
		}
		s.GivenName = nullable(given)
		s.FamilyName = nullable(family)
		s.BirthDate = nullable(birth)
		results = append(results, s)
	}
	return results, rows.Err()
}

func (d *SQLiteDriver) CountPersons(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, sqlCountPersons).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count persons: %w", err)
	}
	return n, nil
}

func (d *SQLiteDriver) SaveDataset(ctx context.Context, ds model.Dataset) error {
	if ds.ID == "" {
		ds.ID = model.DefaultDatasetID
	}
	if ds.UpdatedAt.IsZero() {
		ds.UpdatedAt = d.now()
	}
	_, err := d.db.ExecContext(ctx, sqlSaveDataset, ds.ID, ds.Payload, ds.RunID, formatTime(ds.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: save dataset: %w", err)
	}
	return nil
}

func (d *SQLiteDriver) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	var (
		ds      model.Dataset
		updated string
	)
	err := d.db.QueryRowContext(ctx, sqlLoadDataset, model.DefaultDatasetID).Scan(&ds.ID, &ds.Payload, &ds.RunID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load dataset: %w", err)
	}
	ds.UpdatedAt = parseTime(updated)
	return &ds, nil
}
