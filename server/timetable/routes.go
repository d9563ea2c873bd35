package servertimetable

import (
	"log/slog"
	"time"

	"github.com/Pjt727/timetable/collection"
	"github.com/Pjt727/timetable/data/timetable"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type RateLimits struct {
	// writes per second for each client
	Writes rate.Limit
	Burst  int
}

var DefaultRateLimits = RateLimits{Writes: 5, Burst: 10}

func PopulateTimetableRoutes(
	r *chi.Router,
	store *timetable.Store,
	importer *collection.Importer,
	location *time.Location,
	limits RateLimits,
	logger *slog.Logger,
) *WatchHub {
	hub := NewWatchHub(logger)
	store.OnPlaced(hub.PublishPlacement)

	h := timetableHandler{
		store:    store,
		importer: importer,
		hub:      hub,
		location: location,
		logger:   logger,
	}
	limiter := newClientLimiter(limits)

	(*r).Route("/timetable", func(r chi.Router) {
		r.Get("/", h.listWeeks)
		r.Get("/watch", hub.serveWatch)
		r.Get("/{date}", h.getWeek)
		r.With(
			limiter.limit,
			middleware.AllowContentType("text/html", "application/xhtml+xml", "text/plain"),
		).Post("/import", h.importPage)
	})
	(*r).Get("/timetable.ics", h.exportICS)
	(*r).Get("/timetable.xlsx", h.exportXLSX)
	(*r).With(limiter.limit).Post("/class", h.addClass)

	return hub
}
