package sqlite

import (
	"context"
	"log/slog"
	"os"

	"github.com/myrjola/fitplan/internal/errors"
)

// ErrSnapshotExists is returned by [Database.Snapshot] when the target file is already there.
var ErrSnapshotExists = errors.NewSentinel("snapshot file already exists")

// Snapshot writes a consistent copy of the whole database to a new file at path.
func (db *Database) Snapshot(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Wrap(ErrSnapshotExists, "snapshot", slog.String("path", path))
	}
	if _, err := db.ReadWrite.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return errors.Wrap(err, "vacuum into", slog.String("path", path))
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "wrote database snapshot", slog.String("path", path))
	return nil
}
