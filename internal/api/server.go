package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/trailstash/harlens/internal/analyzer"
	"github.com/trailstash/harlens/internal/harlog"
	"github.com/trailstash/harlens/internal/livetrack"
	"github.com/trailstash/harlens/internal/query"
	"github.com/trailstash/harlens/internal/stats"
)

type Service interface {
	LoadDocument(ctx context.Context, text string) (analyzer.DocumentSummary, error)
	GetDocument(ctx context.Context, id string) (*harlog.Document, error)
	ListDocuments(ctx context.Context) ([]analyzer.DocumentSummary, error)
	DeleteDocument(ctx context.Context, id string) error
	Search(ctx context.Context, target string, c query.Criteria) ([]query.Result, error)
	StatusReport(ctx context.Context, target string) ([]stats.StatusGroup, error)
	SizeReport(ctx context.Context, target string) ([]stats.RangeGroup, error)
	DurationReport(ctx context.Context, target string) ([]stats.RangeGroup, error)
	MethodReport(ctx context.Context, target string) ([]stats.MethodGroup, error)
	Percentiles(ctx context.Context, target string, percentiles []float64) ([]stats.Percentile, error)
	Slowest(ctx context.Context, target string, n int) ([]stats.SlowEntry, error)
	Largest(ctx context.Context, target string, n int) ([]stats.LargeEntry, error)
	Bandwidth(ctx context.Context, target string) (stats.Bandwidth, error)
	TimeRange(ctx context.Context, target string) (stats.TimeRange, error)
	AuthFailures(ctx context.Context, target string) ([]stats.AuthFailure, error)
	StartLive(ctx context.Context) (livetrack.Snapshot, error)
	StopLive(ctx context.Context) (livetrack.Snapshot, error)
	LiveStats(ctx context.Context) (livetrack.Snapshot, error)
	LiveEntries(ctx context.Context, afterIndex int) ([]harlog.Entry, error)
	LiveDocument(ctx context.Context) (*harlog.Document, error)
	Ingest(ctx context.Context, entries []harlog.Entry) (int, error)
}

// TargetInput selects the entry source for search and stats operations:
// either a loaded document id or the literal "live".
type TargetInput struct {
	Target string `path:"target" doc:"Document id, or 'live' for the live buffer."`
}

func NewServer(svc Service, broker *Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("harlens API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerDocumentHandlers(api, svc)
	registerSearchHandlers(api, svc)
	registerStatsHandlers(api, svc)
	registerLiveHandlers(api, svc)

	router.Get("/live/stream", streamHandler(broker))

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var (
		malformed *harlog.MalformedInputError
		invalid   *harlog.InvalidDocumentError
		badURL    *harlog.MalformedURLError
	)
	switch {
	case errors.As(err, &malformed), errors.As(err, &invalid):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &badURL):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, analyzer.ErrDocumentNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, analyzer.ErrSessionInactive):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
