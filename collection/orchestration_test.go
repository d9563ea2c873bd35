package collection_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Pjt727/timetable/collection"
	"github.com/Pjt727/timetable/collection/apu"
	"github.com/Pjt727/timetable/collection/services"
	"github.com/Pjt727/timetable/data/boltstore"
	"github.com/Pjt727/timetable/data/timetable"
	log "github.com/sirupsen/logrus"
)

var testPage = filepath.Join("apu", "testdata", "week.html")

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func newBoltStore(t *testing.T) *timetable.Store {
	t.Helper()
	repo, err := boltstore.Open(filepath.Join(t.TempDir(), "import.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return timetable.NewStore(repo, quietLogger())
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)
	importer := collection.NewImporter(store, nil, quietLogger())

	report, err := importer.Import(ctx, collection.FileSource{Path: testPage})
	if err != nil {
		t.Fatal(err)
	}
	if report.Parsed != 4 || report.Added != 4 || len(report.Failed) != 0 {
		t.Errorf("unexpected report %#v", report)
	}
	if report.BatchID == "" {
		t.Error("expected a batch id")
	}

	weeks, err := store.ListWeeks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 1 || weeks[0].WeekStartDate != "2025-12-08" {
		t.Fatalf("expected the single week of 2025-12-08 got %#v", weeks)
	}
	if len(weeks[0].Days) != 3 {
		t.Errorf("expected 3 days got %d", len(weeks[0].Days))
	}
	monday := weeks[0].Days[0]
	if monday.Date != "Mon, 08-Dec-2025" || len(monday.Classes) != 2 {
		t.Fatalf("unexpected monday %#v", monday)
	}
	if monday.Classes[0].ModuleCode != "AICT023-4-1-CA-L-1" || monday.Classes[1].ClassType != "Tutorial" {
		t.Errorf("monday classes out of page order %#v", monday.Classes)
	}
}

func TestImportFromURL(t *testing.T) {
	page, err := os.ReadFile(testPage)
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	}))
	defer server.Close()

	store := newBoltStore(t)
	importer := collection.NewImporter(store, nil, quietLogger())
	report, err := importer.Import(context.Background(), collection.NewURLSource(server.URL, quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if report.Added != 4 {
		t.Errorf("expected 4 classes got %d", report.Added)
	}
}

func TestImportReportsIncompleteRows(t *testing.T) {
	page := `<table class="table">
<tr><td>Tue, 09-Dec-2025</td><td>09:00 - 10:00</td><td>B-01</td><td>APU</td><td>AICT023-L</td><td></td></tr>
<tr><td>Tue, 09-Dec-2025</td><td>10:00 - 11:00</td><td>B-01</td><td>APU</td><td>AICT016-L</td><td>Ms. Lee</td></tr>
</table>`
	store := newBoltStore(t)
	importer := collection.NewImporter(store, nil, quietLogger())
	report, err := importer.Import(context.Background(), collection.ReaderSource{Label: "upload", Reader: strings.NewReader(page)})
	if err != nil {
		t.Fatal(err)
	}
	if report.Added != 1 || len(report.Failed) != 1 {
		t.Fatalf("expected one added and one failed row got %#v", report)
	}
	if !strings.Contains(report.Failed[0].Err, "lecturer") {
		t.Errorf("failure should name the missing lecturer: %s", report.Failed[0].Err)
	}
}

type unavailableStore struct{}

func (unavailableStore) AddClass(ctx context.Context, date string, fields timetable.ClassFields) error {
	return timetable.Unavailable("add class", errors.New("connection refused"))
}

func TestImportStopsWhenStoreIsDown(t *testing.T) {
	importer := collection.NewImporter(unavailableStore{}, nil, quietLogger())
	_, err := importer.Import(context.Background(), collection.FileSource{Path: testPage})
	if !errors.Is(err, timetable.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable got %v", err)
	}
}

func TestImportRejectsPageWithoutTimetable(t *testing.T) {
	page := `<html><body><p>Session expired, please log in again</p></body></html>`
	importer := collection.NewImporter(newBoltStore(t), nil, quietLogger())
	_, err := importer.Import(context.Background(), collection.ReaderSource{Label: "upload", Reader: strings.NewReader(page)})
	if !errors.Is(err, services.ErrIncorrectAssumption) || !errors.Is(err, apu.ErrNoTimetable) {
		t.Errorf("expected ErrIncorrectAssumption wrapping ErrNoTimetable got %v", err)
	}
}

func TestImportSkipsRowsWithBadDates(t *testing.T) {
	page := `<table class="table">
<tr><td>Someday</td><td>09:00 - 10:00</td><td>B-01</td><td>APU</td><td>AICT023-L</td><td>Ms. Lee</td></tr>
<tr><td>Tue, 09-Dec-2025</td><td>10:00 - 11:00</td><td>B-01</td><td>APU</td><td>AICT016-L</td><td>Ms. Lee</td></tr>
</table>`
	store := newBoltStore(t)
	importer := collection.NewImporter(store, nil, quietLogger())
	report, err := importer.Import(context.Background(), collection.ReaderSource{Label: "upload", Reader: strings.NewReader(page)})
	if err != nil {
		t.Fatal(err)
	}
	if report.Added != 1 || len(report.Failed) != 1 || report.Failed[0].Date != "Someday" {
		t.Fatalf("expected the dated row added and the other reported got %#v", report)
	}
	weeks, err := store.ListWeeks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 1 || weeks[0].ClassCount() != 1 {
		t.Errorf("unexpected weeks %#v", weeks)
	}
}

var errReadCut = errors.New("read cut short")

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errReadCut }

func TestImportKeepsReadError(t *testing.T) {
	importer := collection.NewImporter(newBoltStore(t), nil, quietLogger())
	_, err := importer.Import(context.Background(), collection.ReaderSource{Label: "upload", Reader: failingReader{}})
	if !errors.Is(err, errReadCut) || !errors.Is(err, services.ErrIncorrectAssumption) {
		t.Errorf("expected the read error to stay wrapped got %v", err)
	}
}
