package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Formato de archivo: {version}_{name}.sql (ej: 0001_student_notifications.up.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// migration es una migración individual ya leída del FS embebido.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// parseMigrations lee y parsea las migraciones del FS dado, ordenadas por
// versión. Archivos que no matchean el patrón se ignoran.
func parseMigrations(fsys fs.FS, dir string) ([]migration, error) {
	var out []migration

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := migrationFilePattern.FindStringSubmatch(filepath.Base(path))
		if matches == nil {
			return nil
		}
		version, _ := strconv.Atoi(matches[1])

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		out = append(out, migration{Version: version, Name: matches[2], SQL: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

const qEnsureMigrationsTable = `
CREATE TABLE IF NOT EXISTS _migrations (
    version    INT PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ DEFAULT NOW()
)`

// Migrate aplica las migraciones pendientes del FS dado y retorna las
// versiones aplicadas en esta corrida. Las ya registradas en _migrations se
// saltean, así el arranque es idempotente.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS, dir string) ([]int, error) {
	if _, err := s.pool.Exec(ctx, qEnsureMigrationsTable); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	rows.Close()

	migs, err := parseMigrations(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("parsing migrations: %w", err)
	}

	var ran []int
	for _, m := range migs {
		if applied[m.Version] {
			continue
		}
		if _, err := s.pool.Exec(ctx, m.SQL); err != nil {
			return ran, fmt.Errorf("applying migration %d_%s: %w", m.Version, m.Name, err)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO _migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name,
		); err != nil {
			return ran, fmt.Errorf("recording migration %d_%s: %w", m.Version, m.Name, err)
		}
		ran = append(ran, m.Version)
	}
	return ran, nil
}
