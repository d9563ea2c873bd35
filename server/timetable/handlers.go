package servertimetable

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/Pjt727/timetable/collection"
	"github.com/Pjt727/timetable/collection/services"
	"github.com/Pjt727/timetable/data/dates"
	"github.com/Pjt727/timetable/data/timetable"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxClassBody  = 64 * 1024
	maxImportBody = 5 * 1024 * 1024
)

type timetableHandler struct {
	store    *timetable.Store
	importer *collection.Importer
	hub      *WatchHub
	location *time.Location
	logger   *slog.Logger
}

type weeksResponse struct {
	Weeks []timetable.Week `json:"weeks"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// the json body of a new class, campus and classType are the optional
// attributes and become options
type addClassRequest struct {
	Date *string `json:"date"`
	timetable.ClassFields
	Campus    string `json:"campus"`
	ClassType string `json:"classType"`
}

type importResponse struct {
	Message string `json:"message"`
	collection.Report
}

func (h *timetableHandler) listWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.store.ListWeeks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, weeksResponse{Weeks: weeks})
}

func (h *timetableHandler) getWeek(w http.ResponseWriter, r *http.Request) {
	week, err := h.store.Week(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, week)
}

func (h *timetableHandler) addClass(w http.ResponseWriter, r *http.Request) {
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType != "application/json" {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "content type must be application/json"})
		return
	}
	var req addClassRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassBody))
	if err := decoder.Decode(&req); err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid json body: %v", err)})
		return
	}

	fields := req.ClassFields.
		WithOption(timetable.OptionCampus, req.Campus).
		WithOption(timetable.OptionClassType, req.ClassType)
	if req.Date == nil || strings.TrimSpace(*req.Date) == "" {
		// report the date together with anything else that is missing
		validationErr := &timetable.ValidationError{Missing: []string{"date"}}
		var fieldsErr *timetable.ValidationError
		if _, err := timetable.NewClass(fields); errors.As(err, &fieldsErr) {
			validationErr.Missing = append(validationErr.Missing, fieldsErr.Missing...)
			validationErr.Unknown = fieldsErr.Unknown
		}
		h.writeError(w, r, validationErr)
		return
	}

	if err := h.store.AddClass(r.Context(), *req.Date, fields); err != nil {
		// only missing fields are the client's fault when adding a class
		if errors.Is(err, dates.ErrInvalidDateFormat) {
			h.writeErrorStatus(w, r, http.StatusInternalServerError, err)
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, messageResponse{Message: "Class added successfully"})
}

func (h *timetableHandler) importPage(w http.ResponseWriter, r *http.Request) {
	source := collection.ReaderSource{
		Label:  "upload " + middleware.GetReqID(r.Context()),
		Reader: http.MaxBytesReader(w, r.Body, maxImportBody),
	}
	report, err := h.importer.Import(r.Context(), source)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, importResponse{
		Message: fmt.Sprintf("Imported %d of %d classes", report.Added, report.Parsed),
		Report:  report,
	})
}

// statusOf maps errors to status codes for every route
func statusOf(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	// an oversized page also fails to parse, the size is what to report
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, timetable.ErrValidation),
		errors.Is(err, dates.ErrInvalidDateFormat),
		errors.Is(err, services.ErrIncorrectAssumption):
		return http.StatusBadRequest
	case errors.Is(err, timetable.ErrWeekNotFound):
		return http.StatusNotFound
	case errors.Is(err, timetable.ErrPlacementConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *timetableHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeErrorStatus(w, r, statusOf(err), err)
}

func (h *timetableHandler) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	message := err.Error()
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "Request failed", "err", err, "path", r.URL.Path)
		// store details stay in the logs
		if errors.Is(err, timetable.ErrStoreUnavailable) {
			message = timetable.ErrStoreUnavailable.Error()
		}
	} else {
		h.logger.InfoContext(r.Context(), "Rejected request", "err", err, "status", status)
	}
	h.writeJSON(w, r, status, errorResponse{Error: message})
}

func (h *timetableHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	encoded, err := json.Marshal(body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Could not marshal response", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(encoded)
}
