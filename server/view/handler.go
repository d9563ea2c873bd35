package view

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/Pjt727/timetable/data/dates"
	"github.com/Pjt727/timetable/data/timetable"
	"github.com/a-h/templ"
)

//go:generate templ generate

//go:embed static
var static embed.FS

// Static holds the stylesheet and script the page links to
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler renders the whole timetable, or one week with ?week=YYYY-MM-DD
func Handler(store *timetable.Store, title string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var weeks []timetable.Week
		var err error
		if date := r.URL.Query().Get("week"); date != "" {
			var week timetable.Week
			week, err = store.Week(r.Context(), date)
			weeks = []timetable.Week{week}
		} else {
			weeks, err = store.ListWeeks(r.Context())
		}
		if err != nil {
			writeError(w, r, err, logger)
			return
		}
		templ.Handler(Page(title, weeks)).ServeHTTP(w, r)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, timetable.ErrWeekNotFound):
		logger.InfoContext(r.Context(), "Could not find week", "err", err)
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dates.ErrInvalidDateFormat):
		logger.InfoContext(r.Context(), "Rejected week", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		// store details stay in the logs
		logger.ErrorContext(r.Context(), "Could not render timetable", "err", err)
		http.Error(w, timetable.ErrStoreUnavailable.Error(), http.StatusInternalServerError)
	}
}
