// boltstore keeps week documents in a single bbolt bucket keyed by week start
// date. bbolt only allows one writer at a time so every method is atomic.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Pjt727/timetable/data/timetable"
	bolt "go.etcd.io/bbolt"
)

var weeksBucket = []byte("weeks")

const openTimeout = 2 * time.Second

type Repository struct {
	db *bolt.DB
}

func Open(path string) (*Repository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, timetable.Unavailable("open bolt "+path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(weeksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create weeks bucket: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.view(ctx, "ping", func(b *bolt.Bucket) error { return nil })
}

func (r *Repository) AppendClassToDay(ctx context.Context, weekStart string, dayLabel string, c timetable.Class) (bool, error) {
	appended := false
	err := r.updateWeek(ctx, "append class", weekStart, func(w *timetable.Week) bool {
		for i := range w.Days {
			if w.Days[i].Date == dayLabel {
				w.Days[i].Classes = append(w.Days[i].Classes, c)
				appended = true
				return true
			}
		}
		return false
	})
	return appended, err
}

func (r *Repository) AppendDay(ctx context.Context, weekStart string, d timetable.Day) (bool, error) {
	appended := false
	err := r.updateWeek(ctx, "append day", weekStart, func(w *timetable.Week) bool {
		if _, exists := w.Day(d.Date); exists {
			return false
		}
		w.Days = append(w.Days, d)
		appended = true
		return true
	})
	return appended, err
}

func (r *Repository) InsertWeek(ctx context.Context, w timetable.Week) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.wrap("insert week", r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(weeksBucket)
		key := []byte(w.WeekStartDate)
		if b.Get(key) != nil {
			return fmt.Errorf("%w: %s", timetable.ErrDuplicateWeek, w.WeekStartDate)
		}
		encoded, err := json.Marshal(w)
		if err != nil {
			return err
		}
		return b.Put(key, encoded)
	}))
}

func (r *Repository) FindWeeks(ctx context.Context) ([]timetable.Week, error) {
	weeks := []timetable.Week{}
	err := r.view(ctx, "find weeks", func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			var w timetable.Week
			if err := json.Unmarshal(v, &w); err != nil {
				return fmt.Errorf("decode week %s: %w", k, err)
			}
			weeks = append(weeks, w)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return weeks, nil
}

// updateWeek decodes the week, lets change modify it and writes it back if
// change reports a modification
func (r *Repository) updateWeek(ctx context.Context, op string, weekStart string, change func(*timetable.Week) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.wrap(op, r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(weeksBucket)
		key := []byte(weekStart)
		raw := b.Get(key)
		if raw == nil {
			return nil
		}
		var w timetable.Week
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("decode week %s: %w", weekStart, err)
		}
		if !change(&w) {
			return nil
		}
		encoded, err := json.Marshal(w)
		if err != nil {
			return err
		}
		return b.Put(key, encoded)
	}))
}

func (r *Repository) view(ctx context.Context, op string, fn func(*bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.wrap(op, r.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(weeksBucket))
	}))
}

func (r *Repository) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, timetable.ErrDuplicateWeek):
		return err
	case errors.Is(err, bolt.ErrDatabaseNotOpen), errors.Is(err, bolt.ErrTimeout):
		return timetable.Unavailable(op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
