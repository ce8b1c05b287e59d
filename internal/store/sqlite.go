package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/domain"
	apkerrors "github.com/serkac1000/apk-needfix/internal/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store with one row per project holding its JSON
// document. Status and timestamps are duplicated into columns for listing.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, apkerrors.IOf(err, "create database directory")
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.initPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initPragmas(ctx context.Context) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to apply %q: %w", q, err)
		}
	}
	return nil
}

type migration struct {
	version int
	name    string
	sql     string
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at INTEGER NOT NULL
);`); err != nil {
		return err
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	migs := make([]migration, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		v, err := parseMigrationVersion(name)
		if err != nil {
			return err
		}
		body, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		migs = append(migs, migration{version: v, name: name, sql: string(body)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })

	for _, m := range migs {
		if applied[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.version, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	base := strings.TrimSuffix(filename, ".sql")
	prefix, _, _ := strings.Cut(base, "_")
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("invalid migration version in %s", filename) //nolint:err113 // embedded file names are fixed at build time
	}
	return v, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, project *domain.Project) error {
	if err := checkProject(project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	project.SchemaVersion = constants.ProjectSchemaVersion

	doc, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to encode project '%s': %w", project.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO projects(id, status, document, created_at, updated_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`,
		project.ID, string(project.Status), string(doc),
		project.CreatedAt.UnixNano(), project.UpdatedAt.UnixNano())
	if err != nil {
		return apkerrors.IOf(err, "insert project %s", project.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to create project '%s': %w", project.ID, apkerrors.ErrProjectExists)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*domain.Project, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM projects WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, apkerrors.IOf(err, "read project %s", id)
	}
	return decodeProject(id, doc)
}

// Save implements Store. The update runs in a transaction so the document
// and its indexed columns change together.
func (s *SQLiteStore) Save(ctx context.Context, project *domain.Project) error {
	if err := checkProject(project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	doc, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to encode project '%s': %w", project.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apkerrors.IOf(err, "begin save %s", project.ID)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE projects SET status = ?, document = ?, updated_at = ?
WHERE id = ?`,
		string(project.Status), string(doc), project.UpdatedAt.UnixNano(), project.ID)
	if err != nil {
		return apkerrors.IOf(err, "update project %s", project.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, project.ID)
	}
	if err := tx.Commit(); err != nil {
		return apkerrors.IOf(err, "commit project %s", project.ID)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, apkerrors.IOf(err, "list projects")
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, apkerrors.IOf(err, "scan project")
		}
		project, err := decodeProject(id, doc)
		if err != nil {
			continue
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, apkerrors.IOf(err, "list projects")
	}
	return projects, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return apkerrors.IOf(err, "delete project %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", apkerrors.ErrProjectNotFound, id)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func decodeProject(id, doc string) (*domain.Project, error) {
	var project domain.Project
	if err := json.Unmarshal([]byte(doc), &project); err != nil {
		return nil, apkerrors.IOf(err, "parse project %s: corrupted record", id)
	}
	return &project, nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
