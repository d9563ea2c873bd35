package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/Pjt727/timetable/data/timetable"
)

func TestAddThenList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{
		"add", "--db", db,
		"--date", "2025-12-03",
		"--time", "09:00 - 11:00",
		"--module-code", "AICT023-4-1-CA-L-1",
		"--module-name", "COMPUTER ARCHITECTURE",
		"--location", "D-07-02",
		"--lecturer", "Mr. Raj",
		"--online=false",
		"--class-type", "Lecture",
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	rootCmd.SetArgs([]string{"list", "--db", db, "--json"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	var weeks []timetable.Week
	if err := json.Unmarshal(out.Bytes(), &weeks); err != nil {
		t.Fatalf("list did not print json: %v %s", err, out.String())
	}
	if len(weeks) != 1 || weeks[0].WeekStartDate != "2025-12-01" {
		t.Fatalf("unexpected weeks %#v", weeks)
	}
	c := weeks[0].Days[0].Classes[0]
	if c.Campus != timetable.DefaultCampus || c.ClassType != "Lecture" || c.Lecturer != "Mr. Raj" {
		t.Errorf("unexpected class %#v", c)
	}
}
