// Package httpapi is the HTTP front door described by spec.md §6: a
// version probe and the ingestion endpoint log shippers post to.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"energylabel-log-server/internal/schema"
	"energylabel-log-server/internal/warehouse"
)

// apiVersion is the string returned by GET /version.
const apiVersion = "0.0.1"

// Inserter is the subset of *warehouse.Warehouse the façade depends
// on; tests substitute a fake to avoid spinning up MariaDB.
type Inserter interface {
	InsertRuns(ctx context.Context, records []*schema.Record) error
}

// API holds the dependencies every handler needs, the way
// knotserver/xrpc.Xrpc bundles its config/db/logger into one struct
// routed through chi rather than threading them as globals.
type API struct {
	DB       Inserter
	Logger   *slog.Logger
	validate *validator.Validate
}

// New constructs an API with a default logger if logger is nil.
func New(db Inserter, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{DB: db, Logger: logger, validate: validator.New()}
}

// Router builds the chi mux for this API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requestLogger)
	r.Get("/version", a.handleVersion)
	r.Post("/log", a.handleLog)
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"latency", time.Since(start),
		)
	})
}

func (a *API) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": apiVersion})
}

// runPayload is the wire shape of one logged run, validated against
// the struct tags below before it is converted into a schema.Record.
type runPayload struct {
	Score            int     `json:"score" validate:"gte=0"`
	StatusCode       int     `json:"statusCode" validate:"gte=0"`
	ErrorMessage     *string `json:"errorMessage,omitempty"`
	PluginVersion    string  `json:"pluginVersion" validate:"required"`
	PluginName       string  `json:"pluginName" validate:"required"`
	ExtensionVersion string  `json:"extensionVersion" validate:"required"`
	BrowserVersion   string  `json:"browserVersion" validate:"required"`
	BrowserName      string  `json:"browserName" validate:"required"`
	Path             string  `json:"path" validate:"required"`
	URL              string  `json:"url" validate:"required,url"`
}

func (p runPayload) toRecord() *schema.Record {
	return &schema.Record{
		Score:            p.Score,
		StatusCode:       p.StatusCode,
		ErrorMessage:     p.ErrorMessage,
		PluginVersion:    p.PluginVersion,
		PluginName:       p.PluginName,
		ExtensionVersion: p.ExtensionVersion,
		BrowserVersion:   p.BrowserVersion,
		BrowserName:      p.BrowserName,
		Path:             p.Path,
		URL:              p.URL,
	}
}

// handleLog accepts one record or an array of records, re-validates
// each (defensive parsing: a handler must never trust that a body
// shaped correctly for JSON is shaped correctly for the domain), and
// hands them to the warehouse. Spec.md §6: success is a bare 200, a
// driver failure is 500, anything else is 400.
func (a *API) handleLog(w http.ResponseWriter, r *http.Request) {
	payloads, err := decodeRuns(r.Body)
	if err != nil {
		http.Error(w, (&warehouse.ValidationError{Msg: err.Error()}).Error(), http.StatusBadRequest)
		return
	}

	records := make([]*schema.Record, 0, len(payloads))
	for i, p := range payloads {
		if err := a.validate.Struct(p); err != nil {
			http.Error(w, (&warehouse.ValidationError{Msg: err.Error()}).Error(), http.StatusBadRequest)
			a.Logger.Warn("rejected run", "index", i, "error", err)
			return
		}
		records = append(records, p.toRecord())
	}

	if err := a.DB.InsertRuns(r.Context(), records); err != nil {
		var driverErr *warehouse.DriverError
		if errors.As(err, &driverErr) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			a.Logger.Error("insert failed", "error", err)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// decodeRuns accepts either a single run object or an array of them.
func decodeRuns(body io.Reader) ([]runPayload, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var arr []runPayload
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}

	var single runPayload
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []runPayload{single}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
