package db

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/morezero/gate-registration/migrations"
)

const migrationsLogPrefix = "db:migrations"

// LoadMigrationFiles reads all .sql files from dir, sorted by name, and returns their contents.
// An empty dir loads the migrations embedded in the binary.
func LoadMigrationFiles(dir string) ([]string, error) {
	if dir == "" {
		out, err := loadMigrationFS(migrations.FS, ".")
		if err != nil {
			return nil, err
		}
		slog.Info(fmt.Sprintf("%s - Loaded %d embedded migration files", migrationsLogPrefix, len(out)))
		return out, nil
	}

	out, err := loadMigrationFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migration files from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

func loadMigrationFS(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, name, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}
