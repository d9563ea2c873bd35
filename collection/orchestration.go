package collection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/Pjt727/timetable/collection/apu"
	"github.com/Pjt727/timetable/collection/services"
	"github.com/Pjt727/timetable/data/dates"
	"github.com/Pjt727/timetable/data/timetable"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// weeks are independent documents so they can be written in parallel
//    rows inside a week are written in order so classes keep the page's order
const parallelWeeks = 4

// Source is somewhere a timetable export can be read from
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

type URLSource struct {
	URL    string
	Client *http.Client
}

func (s URLSource) Name() string { return s.URL }

func (s URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	body, err := services.FetchPage(ctx, s.Client, s.URL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// ReaderSource wraps an upload
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

func (s ReaderSource) Name() string { return s.Label }

func (s ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(s.Reader), nil
}

type RowError struct {
	Row  int    `json:"row"`
	Date string `json:"date"`
	Err  string `json:"error"`
}

type Report struct {
	BatchID string     `json:"batchId"`
	Source  string     `json:"source"`
	Parsed  int        `json:"parsed"`
	Added   int        `json:"added"`
	Failed  []RowError `json:"failed"`
}

// ClassAdder is the part of the timetable store an import needs
type ClassAdder interface {
	AddClass(ctx context.Context, date string, fields timetable.ClassFields) error
}

type Importer struct {
	store  ClassAdder
	parser *apu.Parser
	logger *log.Entry
}

func NewImporter(store ClassAdder, parser *apu.Parser, logger *log.Entry) *Importer {
	if parser == nil {
		parser = apu.NewParser()
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Importer{store: store, parser: parser, logger: logger}
}

// NewURLSource fetches with retries and backs off when the portal struggles
func NewURLSource(url string, logger *log.Entry) URLSource {
	limiter := services.NewAdaptiveRateLimiter(rate.Limit(2), 1, 1)
	return URLSource{URL: url, Client: services.NewRetryClientWithLimiter(logger, limiter)}
}

// Import adds every class of the export. Rows that fail validation are
// reported and skipped, a store failure stops the import.
func (i *Importer) Import(ctx context.Context, source Source) (Report, error) {
	report := Report{BatchID: uuid.New().String(), Source: source.Name(), Failed: []RowError{}}
	logger := i.logger.WithFields(log.Fields{
		"batch":  report.BatchID,
		"source": source.Name(),
	})

	reader, err := source.Open(ctx)
	if err != nil {
		return report, fmt.Errorf("open %s: %w", source.Name(), err)
	}
	defer reader.Close()

	entries, err := i.parser.Parse(reader)
	if err != nil {
		return report, fmt.Errorf("%w: %w", services.ErrIncorrectAssumption, err)
	}
	report.Parsed = len(entries)
	logger.Infof("Parsed %d classes", len(entries))

	byWeek := map[string][]apu.Entry{}
	var weekOrder []string
	for _, entry := range entries {
		if entry.Err != nil {
			report.Failed = append(report.Failed, RowError{Row: entry.Row, Date: entry.Date, Err: entry.Err.Error()})
			continue
		}
		weekStart, err := dates.WeekStartOf(entry.Date)
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: entry.Row, Date: entry.Date, Err: err.Error()})
			continue
		}
		if _, ok := byWeek[weekStart]; !ok {
			weekOrder = append(weekOrder, weekStart)
		}
		byWeek[weekStart] = append(byWeek[weekStart], entry)
	}

	var added atomic.Int32
	var failedMu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelWeeks)
	for _, weekStart := range weekOrder {
		weekEntries := byWeek[weekStart]
		eg.Go(func() error {
			for _, entry := range weekEntries {
				err := i.store.AddClass(egCtx, entry.Date, entry.Fields)
				switch {
				case err == nil:
					added.Add(1)
				case errors.Is(err, timetable.ErrValidation), errors.Is(err, dates.ErrInvalidDateFormat):
					failedMu.Lock()
					report.Failed = append(report.Failed, RowError{Row: entry.Row, Date: entry.Date, Err: err.Error()})
					failedMu.Unlock()
				default:
					return fmt.Errorf("week %s row %d: %w", weekStart, entry.Row, err)
				}
			}
			logger.WithField("weekStartDate", weekStart).Debugf("Imported %d rows", len(weekEntries))
			return nil
		})
	}
	err = eg.Wait()
	report.Added = int(added.Load())
	if err != nil {
		logger.WithError(err).Error("Import stopped")
		return report, err
	}

	logger.WithFields(log.Fields{
		"added":  report.Added,
		"failed": len(report.Failed),
	}).Info("Import finished")
	return report, nil
}
