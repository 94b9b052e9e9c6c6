// Package sqlite opens the plan archive database and keeps its schema current.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/fitplan/internal/errors"
)

// Database holds separate pools for writes and reads. The write pool has a single connection so that writers never
// wait on SQLITE_BUSY, see https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger

	stopOptimizer context.CancelFunc
	optimizerDone chan struct{}
}

// NewDatabase opens the database at url and migrates it to the latest schema. url is a file path or ":memory:".
//
// The optimizer runs in the background until ctx is done or the database is closed.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect", slog.String("url", url))
	}
	if err = db.migrate(ctx); err != nil {
		return nil, errors.Join(errors.Wrap(err, "migrate"), db.Close())
	}
	db.optimizerDone = make(chan struct{})
	ctx, db.stopOptimizer = context.WithCancel(ctx)
	go func() {
		defer close(db.optimizerDone)
		db.startDatabaseOptimizer(ctx)
	}()
	return db, nil
}

//nolint:gochecknoglobals // the driver may only be registered once per process.
var registerDriver sync.Once

const optimizedDriver = "sqlite3optimized"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if _, err := conn.Exec("PRAGMA temp_store = memory; PRAGMA mmap_size = 268435456;", nil); err != nil {
				return errors.Wrap(err, "exec connection pragmas")
			}
			return nil
		},
	})
}

// dsn builds the connection strings. Options prefixed with an underscore are documented at
// https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open, the others at https://www.sqlite.org/uri.html.
func dsn(url string) (readWrite, readOnly string) {
	writeMode, readMode := "mode=rwc", "mode=ro"
	// In-memory databases need a shared cache so that both pools see the same data, and a unique name so that
	// parallel tests don't.
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		writeMode, readMode = "mode=memory&cache=shared", "mode=memory&cache=shared"
	}
	common := strings.Join([]string{
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	readWrite = "file:" + url + "?" + writeMode + "&_txlock=immediate&" + common
	readOnly = "file:" + url + "?" + readMode + "&_txlock=deferred&_query_only=true&" + common
	return readWrite, readOnly
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	registerDriver.Do(registerOptimizedDriver)
	readWriteDSN, readOnlyDSN := dsn(url)

	readWrite, err := sql.Open(optimizedDriver, readWriteDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWrite.SetMaxOpenConns(1)
	readWrite.SetMaxIdleConns(1)
	readWrite.SetConnMaxLifetime(time.Hour)
	readWrite.SetConnMaxIdleTime(time.Hour)
	// sql.Open is lazy. Ping creates the file and keeps the in-memory database alive.
	if err = readWrite.PingContext(ctx); err != nil {
		return nil, errors.Join(errors.Wrap(err, "ping read-write database"), readWrite.Close())
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("dsn", readWriteDSN))

	readOnly, err := sql.Open(optimizedDriver, readOnlyDSN)
	if err != nil {
		return nil, errors.Join(errors.Wrap(err, "open read-only database"), readWrite.Close())
	}
	const maxReadConns = 10
	readOnly.SetMaxOpenConns(maxReadConns)
	readOnly.SetMaxIdleConns(maxReadConns)
	readOnly.SetConnMaxLifetime(time.Hour)
	readOnly.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite:     readWrite,
		ReadOnly:      readOnly,
		logger:        logger,
		stopOptimizer: func() {},
		optimizerDone: nil,
	}, nil
}

// Close stops the optimizer and closes both pools.
func (db *Database) Close() error {
	db.stopOptimizer()
	if db.optimizerDone != nil {
		<-db.optimizerDone
	}
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
