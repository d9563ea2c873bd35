// pgstore keeps each week as a row whose days are a jsonb array. The week
// start date is the primary key and every primitive is one statement.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Pjt727/timetable/data/timetable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// rebuilds the days array pushing $3 onto the classes of the day labeled $2
const appendClassToDay = `
UPDATE weeks
SET days = (
		SELECT jsonb_agg(
			CASE WHEN d->>'date' = $2::text
				THEN jsonb_set(d, '{classes}', COALESCE(d->'classes', '[]'::jsonb) || jsonb_build_array($3::jsonb))
				ELSE d
			END
			ORDER BY ord
		)
		FROM jsonb_array_elements(days) WITH ORDINALITY AS t(d, ord)
	),
	updated_at = now()
WHERE week_start_date = $1
	AND days @> jsonb_build_array(jsonb_build_object('date', $2::text))
`

const appendDay = `
UPDATE weeks
SET days = days || jsonb_build_array($2::jsonb),
	updated_at = now()
WHERE week_start_date = $1
	AND NOT days @> jsonb_build_array(jsonb_build_object('date', $3::text))
`

const insertWeek = `
INSERT INTO weeks (week_start_date, days) VALUES ($1, $2::jsonb)
`

const selectWeeks = `
SELECT week_start_date, days FROM weeks ORDER BY week_start_date
`

type Repository struct {
	pool *pgxpool.Pool
}

func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, timetable.Unavailable("create connection pool", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return timetable.Unavailable("ping postgres", err)
	}
	return nil
}

func (r *Repository) AppendClassToDay(ctx context.Context, weekStart string, dayLabel string, c timetable.Class) (bool, error) {
	encoded, err := json.Marshal(c)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, appendClassToDay, weekStart, dayLabel, string(encoded))
	if err != nil {
		return false, classify("append class", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) AppendDay(ctx context.Context, weekStart string, d timetable.Day) (bool, error) {
	encoded, err := json.Marshal(d)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, appendDay, weekStart, string(encoded), d.Date)
	if err != nil {
		return false, classify("append day", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) InsertWeek(ctx context.Context, w timetable.Week) error {
	days := w.Days
	if days == nil {
		days = []timetable.Day{}
	}
	encoded, err := json.Marshal(days)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertWeek, w.WeekStartDate, string(encoded)); err != nil {
		return classify("insert week", err)
	}
	return nil
}

func (r *Repository) FindWeeks(ctx context.Context) ([]timetable.Week, error) {
	rows, err := r.pool.Query(ctx, selectWeeks)
	if err != nil {
		return nil, classify("find weeks", err)
	}
	defer rows.Close()
	weeks := []timetable.Week{}
	for rows.Next() {
		var w timetable.Week
		var rawDays []byte
		if err := rows.Scan(&w.WeekStartDate, &rawDays); err != nil {
			return nil, classify("scan week", err)
		}
		if err := json.Unmarshal(rawDays, &w.Days); err != nil {
			return nil, fmt.Errorf("decode days of %s: %w", w.WeekStartDate, err)
		}
		weeks = append(weeks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find weeks", err)
	}
	return weeks, nil
}

func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w: %v", op, timetable.ErrDuplicateWeek, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, err)
	}
	// anything without a server error code never reached postgres
	return timetable.Unavailable(op, err)
}
