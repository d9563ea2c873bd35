package timetable_test

import (
	"errors"
	"testing"

	"github.com/Pjt727/timetable/data/timetable"
)

func TestNewClassDefaults(t *testing.T) {
	c, err := timetable.NewClass(classFields("AICT023"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Campus != "APU" {
		t.Errorf("expected default campus APU got %s", c.Campus)
	}
	if c.ClassType != "Class" {
		t.Errorf("expected default class type got %s", c.ClassType)
	}
	if c.IsReplacement {
		t.Error("classes are not replacements by default")
	}
}

func TestNewClassOptions(t *testing.T) {
	fields := classFields("AICT023").
		WithOption(timetable.OptionCampus, "APIIT").
		WithOption(timetable.OptionClassType, "Tutorial").
		WithOption(timetable.OptionCampus, "   ")
	fields.IsReplacement = ptr(true)

	c, err := timetable.NewClass(fields)
	if err != nil {
		t.Fatal(err)
	}
	if c.Campus != "APIIT" || c.ClassType != "Tutorial" || !c.IsReplacement {
		t.Errorf("options not applied: %#v", c)
	}
}

func TestNewClassUnknownOption(t *testing.T) {
	fields := classFields("AICT023")
	fields.Options = map[string]string{"room": "B-06-04"}
	_, err := timetable.NewClass(fields)
	var validationErr *timetable.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error got %v", err)
	}
	if len(validationErr.Unknown) != 1 || validationErr.Unknown[0] != "room" {
		t.Errorf("expected room to be unknown got %v", validationErr.Unknown)
	}
}

func TestNewClassBlankIsMissing(t *testing.T) {
	fields := classFields("AICT023")
	fields.Location = ptr("  ")
	fields.IsOnline = nil
	_, err := timetable.NewClass(fields)
	var validationErr *timetable.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error got %v", err)
	}
	if len(validationErr.Missing) != 2 ||
		validationErr.Missing[0] != "location" ||
		validationErr.Missing[1] != "isOnline" {
		t.Errorf("unexpected missing fields %v", validationErr.Missing)
	}
}
