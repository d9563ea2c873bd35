package servertimetable

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Pjt727/timetable/data/timetable"
	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const calendarProductID = "-//timetable//weekly timetable//EN"

var sheetHeader = []string{
	"Date", "Time", "Module Code", "Module Name", "Location",
	"Campus", "Lecturer", "Online", "Class Type", "Replacement",
}

// classSpan reads a "08:30 - 10:30" time range on the given day
func classSpan(day time.Time, span string, location *time.Location) (time.Time, time.Time, bool) {
	startText, endText, ok := strings.Cut(span, "-")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse("15:04", strings.TrimSpace(startText))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("15:04", strings.TrimSpace(endText))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	at := func(clock time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, location)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return at(start), at(end), true
}

func eventID(day timetable.Day, c timetable.Class, index int) string {
	name := fmt.Sprintf("%s|%s|%s|%d", day.Date, c.Time, c.ModuleCode, index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@timetable"
}

func eventSummary(c timetable.Class) string {
	summary := fmt.Sprintf("%s %s (%s)", c.ModuleCode, c.ModuleName, c.ClassType)
	if c.IsReplacement {
		summary = "[Replacement] " + summary
	}
	return summary
}

// BuildCalendar has one event per class whose time is a readable range.
// Classes with free form times are left out.
func BuildCalendar(weeks []timetable.Week, location *time.Location, stamp time.Time) (*ics.Calendar, int) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName("Timetable")
	cal.SetXWRTimezone(location.String())

	skipped := 0
	for _, week := range weeks {
		for _, day := range week.Days {
			date, ok := day.Time()
			if !ok {
				skipped += len(day.Classes)
				continue
			}
			for i, c := range day.Classes {
				start, end, ok := classSpan(date, c.Time, location)
				if !ok {
					skipped++
					continue
				}
				event := cal.AddEvent(eventID(day, c, i))
				event.SetDtStampTime(stamp)
				event.SetStartAt(start)
				event.SetEndAt(end)
				event.SetSummary(eventSummary(c))
				place := c.Location
				if c.IsOnline {
					place = "Online " + place
				}
				event.SetLocation(strings.TrimSpace(place))
				event.SetDescription(fmt.Sprintf("Lecturer: %s\nCampus: %s", c.Lecturer, c.Campus))
			}
		}
	}
	return cal, skipped
}

// BuildWorkbook has one sheet per week, named by its start date
func BuildWorkbook(weeks []timetable.Week) (*excelize.File, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	sheets := make([]string, 0, len(weeks))
	for _, week := range weeks {
		sheets = append(sheets, week.WeekStartDate)
	}
	if len(sheets) == 0 {
		sheets = append(sheets, "Timetable")
	}
	if err := f.SetSheetName("Sheet1", sheets[0]); err != nil {
		f.Close()
		return nil, err
	}

	for i, sheet := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(sheet); err != nil {
				f.Close()
				return nil, err
			}
		}
		for col, title := range sheetHeader {
			f.SetCellValue(sheet, cell(col, 1), title)
		}
		f.SetCellStyle(sheet, cell(0, 1), cell(len(sheetHeader)-1, 1), headerStyle)
		f.SetColWidth(sheet, "A", "A", 18)
		f.SetColWidth(sheet, "B", "B", 16)
		f.SetColWidth(sheet, "D", "D", 36)
		if i >= len(weeks) {
			continue
		}

		row := 2
		for _, day := range weeks[i].Days {
			for _, c := range day.Classes {
				values := []any{
					day.Date, c.Time, c.ModuleCode, c.ModuleName, c.Location,
					c.Campus, c.Lecturer, yesNo(c.IsOnline), c.ClassType, yesNo(c.IsReplacement),
				}
				for col, v := range values {
					f.SetCellValue(sheet, cell(col, row), v)
				}
				row++
			}
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func cell(col int, row int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return name + strconv.Itoa(row)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (h *timetableHandler) exportICS(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.store.ListWeeks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cal, skipped := BuildCalendar(weeks, h.location, time.Now())
	if skipped > 0 {
		h.logger.Info("Left classes out of calendar", "skipped", skipped)
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(cal.Serialize()))
}

func (h *timetableHandler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.store.ListWeeks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := BuildWorkbook(weeks)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("building workbook: %w", err))
		return
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		h.writeError(w, r, fmt.Errorf("writing workbook: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
