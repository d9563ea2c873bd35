package timetable

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Pjt727/timetable/data/dates"
	log "github.com/sirupsen/logrus"
)

// each attempt walks all three tiers, another attempt only happens after
//    losing a race to a concurrent writer
const maxPlacementAttempts = 3

// Repository holds week documents, every method must be a single atomic
// operation on one document
type Repository interface {
	// appends c to the day labeled dayLabel of the week if both exist
	AppendClassToDay(ctx context.Context, weekStart string, dayLabel string, c Class) (bool, error)

	// appends d to the week if the week exists and has no day with d's label
	AppendDay(ctx context.Context, weekStart string, d Day) (bool, error)

	// inserts a new week, returns ErrDuplicateWeek if the week already exists
	InsertWeek(ctx context.Context, w Week) error

	// every week in any order
	FindWeeks(ctx context.Context) ([]Week, error)
}

// Placement describes where a class ended up
type Placement struct {
	WeekStartDate string `json:"weekStartDate"`
	DayLabel      string `json:"dayLabel"`
	// 1 existing day, 2 new day, 3 new week
	Tier  int   `json:"tier"`
	Class Class `json:"class"`
}

type Store struct {
	repo   Repository
	logger *log.Entry

	listenersMu sync.RWMutex
	listeners   []func(Placement)
}

func NewStore(repo Repository, logger *log.Entry) *Store {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Store{repo: repo, logger: logger}
}

// OnPlaced registers fn to be called after every successful AddClass, fn runs
// on the adding goroutine so it should not block
func (s *Store) OnPlaced(fn func(Placement)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(p Placement) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(p)
	}
}

// ListWeeks gives every week ordered by start date with days in calendar order
func (s *Store) ListWeeks(ctx context.Context) ([]Week, error) {
	weeks, err := s.repo.FindWeeks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	if weeks == nil {
		weeks = []Week{}
	}
	for i := range weeks {
		if weeks[i].Days == nil {
			weeks[i].Days = []Day{}
		}
		sortDays(weeks[i].Days)
	}
	sortWeeks(weeks)
	return weeks, nil
}

// Week gives the week containing date
func (s *Store) Week(ctx context.Context, date string) (Week, error) {
	weekStart, err := dates.WeekStartOf(date)
	if err != nil {
		return Week{}, err
	}
	weeks, err := s.ListWeeks(ctx)
	if err != nil {
		return Week{}, err
	}
	for _, w := range weeks {
		if w.WeekStartDate == weekStart {
			return w, nil
		}
	}
	return Week{}, fmt.Errorf("%w: %s", ErrWeekNotFound, weekStart)
}

// AddClass places a class under the week and day of date
//
//	tier 1 appends to an existing day
//	tier 2 appends a new day to an existing week
//	tier 3 creates the week
func (s *Store) AddClass(ctx context.Context, date string, fields ClassFields) error {
	c, err := NewClass(fields)
	if err != nil {
		return err
	}
	weekStart, err := dates.WeekStartOf(date)
	if err != nil {
		return err
	}
	dayLabel, err := dates.DisplayLabelOf(date)
	if err != nil {
		return err
	}
	tier, err := s.place(ctx, weekStart, dayLabel, c)
	if err != nil {
		return err
	}
	s.notify(Placement{WeekStartDate: weekStart, DayLabel: dayLabel, Tier: tier, Class: c})
	return nil
}

func (s *Store) place(ctx context.Context, weekStart string, dayLabel string, c Class) (int, error) {
	logger := s.logger.WithFields(log.Fields{
		"weekStartDate": weekStart,
		"dayLabel":      dayLabel,
		"moduleCode":    c.ModuleCode,
	})

	for attempt := 1; attempt <= maxPlacementAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		appended, err := s.repo.AppendClassToDay(ctx, weekStart, dayLabel, c)
		if err != nil {
			return 0, fmt.Errorf("append class: %w", err)
		}
		if appended {
			logger.WithField("tier", 1).Debug("Appended class to existing day")
			return 1, nil
		}

		appended, err = s.repo.AppendDay(ctx, weekStart, Day{Date: dayLabel, Classes: []Class{c}})
		if err != nil {
			return 0, fmt.Errorf("append day: %w", err)
		}
		if appended {
			logger.WithField("tier", 2).Debug("Appended day to existing week")
			return 2, nil
		}

		err = s.repo.InsertWeek(ctx, Week{
			WeekStartDate: weekStart,
			Days:          []Day{{Date: dayLabel, Classes: []Class{c}}},
		})
		if err == nil {
			logger.WithField("tier", 3).Debug("Created week")
			return 3, nil
		}
		if !errors.Is(err, ErrDuplicateWeek) {
			return 0, fmt.Errorf("insert week: %w", err)
		}
		// the week or day appeared between the checks
		logger.WithField("attempt", attempt).Warn("Lost placement race, retrying")
	}
	return 0, fmt.Errorf("%w: week %s day %s", ErrPlacementConflict, weekStart, dayLabel)
}
