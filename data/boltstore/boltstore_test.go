package boltstore_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Pjt727/timetable/data/boltstore"
	"github.com/Pjt727/timetable/data/timetable"
	log "github.com/sirupsen/logrus"
)

func openTestRepo(t *testing.T) (*boltstore.Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetable.db")
	repo, err := boltstore.Open(path)
	if err != nil {
		t.Fatalf("could not open bolt database: %v", err)
	}
	return repo, path
}

func newStore(repo timetable.Repository) *timetable.Store {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return timetable.NewStore(repo, log.NewEntry(logger))
}

func fields(moduleCode string) timetable.ClassFields {
	str := func(s string) *string { return &s }
	online := true
	return timetable.ClassFields{
		ModuleCode: str(moduleCode),
		ModuleName: str("DIGITAL THINKING AND INNOVATION"),
		Time:       str("14:00 - 16:00"),
		Location:   str("ONL-ROOM-1"),
		Lecturer:   str("Ms. Lee"),
		IsOnline:   &online,
	}
}

func TestPrimitives(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t)
	defer repo.Close()

	c, err := timetable.NewClass(fields("AICT016"))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := repo.AppendClassToDay(ctx, "2025-12-01", "Mon, 01-Dec-2025", c)
	if err != nil || ok {
		t.Fatalf("append to missing week should not match: %v %v", ok, err)
	}
	ok, err = repo.AppendDay(ctx, "2025-12-01", timetable.Day{Date: "Mon, 01-Dec-2025", Classes: []timetable.Class{c}})
	if err != nil || ok {
		t.Fatalf("append day to missing week should not match: %v %v", ok, err)
	}

	week := timetable.Week{
		WeekStartDate: "2025-12-01",
		Days:          []timetable.Day{{Date: "Mon, 01-Dec-2025", Classes: []timetable.Class{c}}},
	}
	if err := repo.InsertWeek(ctx, week); err != nil {
		t.Fatal(err)
	}
	if err := repo.InsertWeek(ctx, week); !errors.Is(err, timetable.ErrDuplicateWeek) {
		t.Fatalf("expected ErrDuplicateWeek got %v", err)
	}

	ok, err = repo.AppendDay(ctx, "2025-12-01", timetable.Day{Date: "Mon, 01-Dec-2025", Classes: []timetable.Class{c}})
	if err != nil || ok {
		t.Fatalf("appending an existing day label should not match: %v %v", ok, err)
	}
	ok, err = repo.AppendClassToDay(ctx, "2025-12-01", "Mon, 01-Dec-2025", c)
	if err != nil || !ok {
		t.Fatalf("append to existing day should match: %v %v", ok, err)
	}

	weeks, err := repo.FindWeeks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 1 || weeks[0].ClassCount() != 2 {
		t.Errorf("unexpected weeks %#v", weeks)
	}
}

func TestStoreOnBolt(t *testing.T) {
	ctx := context.Background()
	repo, path := openTestRepo(t)
	store := newStore(repo)

	adds := []struct {
		date string
		code string
	}{
		{"2025-12-09", "AICT023"},
		{"2025-12-02", "AAQS038"},
		{"2025-12-02", "ABUS007"},
		{"2025-12-01", "MPU2112"},
	}
	for _, add := range adds {
		if err := store.AddClass(ctx, add.date, fields(add.code)); err != nil {
			t.Fatal(err)
		}
	}
	repo.Close()

	// everything has to survive a reopen
	reopened, err := boltstore.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	weeks, err := newStore(reopened).ListWeeks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 2 {
		t.Fatalf("expected 2 weeks got %d", len(weeks))
	}
	if weeks[0].WeekStartDate != "2025-12-01" || weeks[1].WeekStartDate != "2025-12-08" {
		t.Errorf("weeks out of order %s %s", weeks[0].WeekStartDate, weeks[1].WeekStartDate)
	}
	first := weeks[0]
	if len(first.Days) != 2 {
		t.Fatalf("expected 2 days got %d", len(first.Days))
	}
	if first.Days[0].Date != "Mon, 01-Dec-2025" {
		t.Errorf("expected monday first got %s", first.Days[0].Date)
	}
	tuesday, _ := first.Day("Tue, 02-Dec-2025")
	if len(tuesday.Classes) != 2 || tuesday.Classes[0].ModuleCode != "AAQS038" {
		t.Errorf("unexpected tuesday classes %#v", tuesday.Classes)
	}
}

func TestConcurrentWritersOnBolt(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t)
	defer repo.Close()
	store := newStore(repo)

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.AddClass(ctx, "2025-12-03", fields("AICT016"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	weeks, err := store.ListWeeks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 1 || len(weeks[0].Days) != 1 || weeks[0].ClassCount() != writers {
		t.Errorf("expected one week with one day and %d classes got %#v", writers, weeks)
	}
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	repo, _ := openTestRepo(t)
	repo.Close()
	_, err := repo.FindWeeks(context.Background())
	if !errors.Is(err, timetable.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable got %v", err)
	}
}
