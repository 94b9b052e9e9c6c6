package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/sqlite"
)

// ErrNotFound is returned by [Repository.Get] for unknown plan IDs.
var ErrNotFound = errors.NewSentinel("plan not found")

const timestampFormat = "2006-01-02T15:04:05.000Z"

// Summary describes an archived plan without loading it.
type Summary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	DerivedFrom string    `json:"derived_from,omitempty"`
	Valid       bool      `json:"valid"`
}

// Repository archives generated plans in SQLite.
type Repository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewRepository(db *sqlite.Database, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Save stores p. Saving the same ID twice fails since plans are never changed after generation.
func (r *Repository) Save(ctx context.Context, p Plan) error {
	profile, err := json.Marshal(p.Profile)
	if err != nil {
		return errors.Wrap(err, "marshal profile")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshal plan")
	}
	var derivedFrom sql.NullString
	if p.DerivedFrom != "" {
		derivedFrom = sql.NullString{String: p.DerivedFrom, Valid: true}
	}
	_, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO plans (id, created_at, derived_from, profile, plan, valid)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.CreatedAt.UTC().Format(timestampFormat),
		derivedFrom,
		string(profile),
		string(body),
		p.Validation.Valid(),
	)
	if err != nil {
		return errors.Wrap(err, "insert plan", slog.String("plan_id", p.ID))
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "archived plan", slog.String("plan_id", p.ID))
	return nil
}

// Get loads the plan with the given ID.
func (r *Repository) Get(ctx context.Context, id string) (Plan, error) {
	var body string
	err := r.db.ReadOnly.QueryRowContext(ctx, `SELECT plan FROM plans WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, errors.Wrap(ErrNotFound, "get plan", slog.String("plan_id", id))
	}
	if err != nil {
		return Plan{}, errors.Wrap(err, "query plan", slog.String("plan_id", id))
	}
	var p Plan
	if err = json.Unmarshal([]byte(body), &p); err != nil {
		return Plan{}, errors.Wrap(err, "unmarshal plan", slog.String("plan_id", id))
	}
	return p, nil
}

// List returns up to limit plans, newest first.
func (r *Repository) List(ctx context.Context, limit int) (_ []Summary, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, created_at, coalesce(derived_from, ''), valid
		FROM plans
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query plans")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close rows")
		}
	}()

	var summaries []Summary
	for rows.Next() {
		var (
			s         Summary
			createdAt string
		)
		if err = rows.Scan(&s.ID, &createdAt, &s.DerivedFrom, &s.Valid); err != nil {
			return nil, errors.Wrap(err, "scan plan")
		}
		if s.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return nil, errors.Wrap(err, "parse created_at", slog.String("plan_id", s.ID))
		}
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate plans")
	}
	return summaries, nil
}
