package timetable

import (
	"sort"
	"time"

	"github.com/Pjt727/timetable/data/dates"
)

// Week is the top level document, there is exactly one per week start date
type Week struct {
	WeekStartDate string `json:"weekStartDate" bson:"weekStartDate"`
	Days          []Day  `json:"days" bson:"days"`
}

// Day is keyed by its display label e.i. "Mon, 01-Dec-2025"
type Day struct {
	Date    string  `json:"date" bson:"date"`
	Classes []Class `json:"classes" bson:"classes"`
}

type Class struct {
	ModuleCode    string `json:"moduleCode" bson:"moduleCode"`
	ModuleName    string `json:"moduleName" bson:"moduleName"`
	Time          string `json:"time" bson:"time"`
	Location      string `json:"location" bson:"location"`
	Campus        string `json:"campus" bson:"campus"`
	Lecturer      string `json:"lecturer" bson:"lecturer"`
	IsOnline      bool   `json:"isOnline" bson:"isOnline"`
	ClassType     string `json:"classType" bson:"classType"`
	IsReplacement bool   `json:"isReplacement" bson:"isReplacement"`
}

// Day gives the day with label in the week
func (w Week) Day(label string) (Day, bool) {
	for _, d := range w.Days {
		if d.Date == label {
			return d, true
		}
	}
	return Day{}, false
}

func (w Week) ClassCount() int {
	count := 0
	for _, d := range w.Days {
		count += len(d.Classes)
	}
	return count
}

// Time of the day's label, labels that cannot be parsed sort last
func (d Day) Time() (time.Time, bool) {
	t, err := dates.ParseDisplayLabel(d.Date)
	return t, err == nil
}

// days are stored in the order they were first written
// readers get them in calendar order
func sortDays(days []Day) {
	sort.SliceStable(days, func(i, j int) bool {
		ti, okI := days[i].Time()
		tj, okJ := days[j].Time()
		if okI && okJ {
			return ti.Before(tj)
		}
		return okI && !okJ
	})
}

// week start dates are zero padded so string order is date order
func sortWeeks(weeks []Week) {
	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].WeekStartDate < weeks[j].WeekStartDate
	})
}
