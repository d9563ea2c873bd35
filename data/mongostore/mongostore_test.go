package mongostore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Pjt727/timetable/data/mongostore"
	"github.com/Pjt727/timetable/data/timetable"
)

// these run against a real server and are skipped unless TEST_MONGO_CONN is set
func openTestRepo(t *testing.T) *mongostore.Repository {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_CONN")
	if uri == "" {
		t.Skip("TEST_MONGO_CONN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	database := fmt.Sprintf("timetable_test_%d", time.Now().UnixNano())
	repo, err := mongostore.Open(ctx, uri, database)
	if err != nil {
		t.Fatalf("could not open mongo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func class(code string) timetable.Class {
	return timetable.Class{
		ModuleCode: code,
		ModuleName: "MATHEMATICS AND STATISTICS FOR COMPUTING",
		Time:       "08:30 - 10:30",
		Location:   "B-07-08",
		Campus:     "APU",
		Lecturer:   "Mr. Lim",
		ClassType:  "Lecture",
	}
}

func TestMongoTiers(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	week := timetable.Week{
		WeekStartDate: "2025-12-01",
		Days:          []timetable.Day{{Date: "Mon, 01-Dec-2025", Classes: []timetable.Class{class("AAQS038")}}},
	}
	if err := repo.InsertWeek(ctx, week); err != nil {
		t.Fatal(err)
	}
	if err := repo.InsertWeek(ctx, week); !errors.Is(err, timetable.ErrDuplicateWeek) {
		t.Fatalf("unique index should reject a second week got %v", err)
	}

	ok, err := repo.AppendClassToDay(ctx, "2025-12-01", "Mon, 01-Dec-2025", class("AICT023"))
	if err != nil || !ok {
		t.Fatalf("expected append to existing day: %v %v", ok, err)
	}
	ok, err = repo.AppendDay(ctx, "2025-12-01", timetable.Day{Date: "Mon, 01-Dec-2025"})
	if err != nil || ok {
		t.Fatalf("existing label must not be appended again: %v %v", ok, err)
	}
	ok, err = repo.AppendDay(ctx, "2025-12-01", timetable.Day{Date: "Tue, 02-Dec-2025", Classes: []timetable.Class{class("ABUS007")}})
	if err != nil || !ok {
		t.Fatalf("expected new day appended: %v %v", ok, err)
	}

	weeks, err := repo.FindWeeks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 1 || len(weeks[0].Days) != 2 || weeks[0].ClassCount() != 3 {
		t.Errorf("unexpected weeks %#v", weeks)
	}
}
