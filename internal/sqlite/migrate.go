package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrations returns the embedded migration scripts in the order they must run. Migration n, counting from one,
// moves the database from user_version n-1 to n.
func migrations() ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "glob migrations")
	}
	slices.Sort(names)
	return names, nil
}

// migrate applies the migrations the database hasn't seen yet, each in its own transaction. The schema version is
// tracked with PRAGMA user_version.
func (db *Database) migrate(ctx context.Context) error {
	names, err := migrations()
	if err != nil {
		return err
	}
	var version int
	if err = db.ReadWrite.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "read user_version")
	}
	if version > len(names) {
		return errors.New(fmt.Sprintf("database schema version %d is newer than this build (%d)", version, len(names)))
	}

	for i := version; i < len(names); i++ {
		start := time.Now()
		if err = db.applyMigration(ctx, names[i], i+1); err != nil {
			return err
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "applied migration",
			slog.String("name", path.Base(names[i])),
			slog.Int("version", i+1),
			slog.Duration("duration", time.Since(start)))
	}
	return nil
}

func (db *Database) applyMigration(ctx context.Context, name string, version int) (err error) {
	script, err := migrationFS.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read migration", slog.String("name", name))
	}
	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer db.rollback(ctx, tx)

	if _, err = tx.ExecContext(ctx, string(script)); err != nil {
		return errors.Wrap(err, "exec migration", slog.String("name", name))
	}
	// PRAGMA doesn't take bind parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit migration", slog.String("name", name))
	}
	return nil
}

// rollback is deferred after BeginTx. It's a no-op once the transaction is committed.
func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back transaction", errors.SlogError(err))
	}
}
