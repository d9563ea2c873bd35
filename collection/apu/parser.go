// apu reads the weekly timetable page the university portal exports. The
// page is one table where each row is
//
//	date label | time | location | campus | subject | lecturer
//
// and header rows are marked with the thead-dark class.
package apu

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Pjt727/timetable/data/dates"
	"github.com/Pjt727/timetable/data/timetable"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minCells       = 6
	headerRowClass = "thead-dark"
	tableClass     = "table"
)

var (
	moduleCodePattern = regexp.MustCompile(`^[A-Z0-9-]+`)
	classTypePattern  = regexp.MustCompile(`(?i)-(LAB|L|T)-`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// the page has no table with the timetable class at all
var ErrNoTimetable = errors.New("no timetable table in page")

// Entry is one parsed row, ready for Store.AddClass. Err is set when the row
// has no usable date, Date then holds the raw label.
type Entry struct {
	Date   string
	Row    int
	Fields timetable.ClassFields
	Err    error
}

type Parser struct {
	ModuleNames ModuleNames
}

func NewParser() *Parser {
	return &Parser{ModuleNames: ModuleNames(DefaultModuleNames)}
}

// Parse reads every class out of the export, rows that are breaks or
// incomplete are skipped. Rows under a label that is not a date come back
// with Err set so the caller can report them.
func (p *Parser) Parse(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse timetable html: %w", err)
	}

	tables := findAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, tableClass)
	})
	if len(tables) == 0 {
		return nil, ErrNoTimetable
	}

	var entries []Entry
	currentDate := ""
	dateErr := fmt.Errorf("%w: class before any date", dates.ErrInvalidDateFormat)
	rowNumber := 0
	for _, table := range tables {
		for _, row := range findAll(table, func(n *html.Node) bool { return n.DataAtom == atom.Tr }) {
			rowNumber++
			if hasClass(row, headerRowClass) {
				continue
			}
			cells := findAll(row, func(n *html.Node) bool { return n.DataAtom == atom.Td })
			if len(cells) < minCells {
				continue
			}
			text := make([]string, len(cells))
			for i, cell := range cells {
				text[i] = textContent(cell)
			}

			// continuation rows leave the date cell empty
			// a bad label fails every row under it until the next label
			if text[0] != "" {
				iso, err := dates.IsoFromLabel(text[0])
				if err != nil {
					currentDate, dateErr = text[0], err
				} else {
					currentDate, dateErr = iso, nil
				}
			}
			entry, ok := p.entryFromCells(text)
			if !ok {
				continue
			}
			entry.Date = currentDate
			entry.Row = rowNumber
			entry.Err = dateErr
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (p *Parser) entryFromCells(cells []string) (Entry, bool) {
	classTime := cells[1]
	location := cells[2]
	campus := cells[3]
	subject := cells[4]
	lecturer := cells[5]
	if subject == "" || strings.EqualFold(subject, "BREAK") || classTime == "" {
		return Entry{}, false
	}

	moduleCode := moduleCodePattern.FindString(subject)
	if moduleCode == "" {
		moduleCode = subject
	}
	moduleCode = strings.TrimSpace(strings.ReplaceAll(moduleCode, " (Online)", ""))
	moduleName := p.ModuleNames.Lookup(moduleCode)

	isOnline := strings.Contains(strings.ToLower(subject), "(online)") ||
		strings.HasPrefix(strings.ToLower(location), "onl")

	fields := timetable.ClassFields{
		ModuleCode: &moduleCode,
		ModuleName: &moduleName,
		Time:       &classTime,
		Location:   &location,
		Lecturer:   &lecturer,
		IsOnline:   &isOnline,
	}
	fields = fields.
		WithOption(timetable.OptionCampus, campus).
		WithOption(timetable.OptionClassType, classType(moduleCode, location))
	return Entry{Fields: fields}, true
}

func classType(moduleCode, location string) string {
	if match := classTypePattern.FindStringSubmatch(moduleCode); match != nil {
		switch strings.ToUpper(match[1]) {
		case "L":
			return "Lecture"
		case "T":
			return "Tutorial"
		case "LAB":
			return "Lab"
		}
	}
	if strings.Contains(strings.ToLower(location), "lab") {
		return "Lab"
	}
	return "Lecture"
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " "))
}
