package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/explorer_api/internal/app"
	"github.com/R3E-Network/explorer_api/internal/app/metrics"
	"github.com/R3E-Network/explorer_api/internal/app/services/search"
	"github.com/R3E-Network/explorer_api/internal/app/services/stats"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/internal/middleware"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// BasePath prefixes every explorer endpoint.
const BasePath = "/api/explorer"

// Option customises the handler.
type Option func(*config)

type config struct {
	log     *logger.Logger
	cache   mux.MiddlewareFunc
	limiter *middleware.RateLimiter
	cors    *middleware.CORSMiddleware
	now     func() time.Time
}

// WithLogger sets the request and error logger.
func WithLogger(log *logger.Logger) Option { return func(c *config) { c.log = log } }

// WithCache caches successful explorer responses.
func WithCache(cache mux.MiddlewareFunc) Option { return func(c *config) { c.cache = cache } }

// WithRateLimiter enables per-client rate limiting.
func WithRateLimiter(rl *middleware.RateLimiter) Option { return func(c *config) { c.limiter = rl } }

// WithCORS sets the CORS policy. Without it every origin is allowed.
func WithCORS(cors *middleware.CORSMiddleware) Option { return func(c *config) { c.cors = cors } }

// WithClock overrides the clock used for default date parameters.
func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
	now func() time.Time
}

// NewHandler returns the explorer HTTP API with its middleware chain.
func NewHandler(application *app.Application, opts ...Option) http.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.NewDefault("httpapi")
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.cors == nil {
		cfg.cors = middleware.NewCORSMiddleware(nil)
	}

	h := &handler{app: application, log: cfg.log, now: cfg.now}

	router := mux.NewRouter().UseEncodedPath()
	router.Use(middleware.LoggingMiddleware(cfg.log), metrics.Middleware)
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix(BasePath).Subrouter()
	if cfg.cache != nil {
		api.Use(cfg.cache)
	}
	api.HandleFunc("/networks", h.networks).Methods(http.MethodGet)
	api.HandleFunc("/feeds/{networkId}", h.feeds).Methods(http.MethodGet)
	api.HandleFunc("/feeds/{networkId}/{feedId}", h.feed).Methods(http.MethodGet)
	api.HandleFunc("/feeds/{networkId}/{feedId}/facts", h.feedFacts).Methods(http.MethodGet)
	api.HandleFunc("/facts/{networkId}", h.facts).Methods(http.MethodGet)
	api.HandleFunc("/facts/{networkId}/{factUrn}", h.fact).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{networkId}", h.nodes).Methods(http.MethodGet)
	api.HandleFunc("/sources/{networkId}", h.sources).Methods(http.MethodGet)
	api.HandleFunc("/search/{networkId}", h.search).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/{networkId}", h.dashboard).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.stats).Methods(http.MethodGet)

	var out http.Handler = router
	if cfg.limiter != nil {
		out = cfg.limiter.Handler(out)
	}
	return cfg.cors.Handler(out)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if loaded := h.app.Directory.LoadedAt(); !loaded.IsZero() {
		body["networks_loaded_at"] = loaded.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) networks(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Networks.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch networks data")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) feeds(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Feeds.List(r.Context(), pathValue(r, "networkId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch feeds data")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) feed(w http.ResponseWriter, r *http.Request) {
	view, err := h.app.Feeds.Get(r.Context(), pathValue(r, "networkId"), pathValue(r, "feedId"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Feed not found")
	case err != nil:
		h.fail(w, r, err, "Failed to fetch feed data")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *handler) feedFacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rangeDays := 1
	if raw := strings.TrimSpace(query.Get("range")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'range' parameter. Must be an integer.")
			return
		}
		rangeDays = n
	}

	start := h.now()
	if raw := strings.TrimSpace(query.Get("startDate")); raw != "" {
		parsed, ok := parseStartDate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid 'startDate' parameter.")
			return
		}
		start = parsed
	}

	items, err := h.app.Feeds.FactsInRange(r.Context(), pathValue(r, "networkId"), pathValue(r, "feedId"), rangeDays, start)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Feed not found")
	case err != nil:
		h.fail(w, r, err, "Failed to fetch feed facts by date range")
	default:
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *handler) facts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'page' parameter. Must be an integer.")
			return
		}
		page = n
	}

	res, err := h.app.Facts.Page(r.Context(), pathValue(r, "networkId"), page, query.Get("feedId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch facts data")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) fact(w http.ResponseWriter, r *http.Request) {
	detail, err := h.app.Facts.ByURN(r.Context(), pathValue(r, "networkId"), pathValue(r, "factUrn"), r.URL.Query().Get("feedId"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Fact not found")
	case err != nil:
		h.fail(w, r, err, "Failed to fetch fact by URN")
	default:
		writeJSON(w, http.StatusOK, detail)
	}
}

func (h *handler) nodes(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Nodes.List(r.Context(), pathValue(r, "networkId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch nodes data")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) sources(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Sources.List(r.Context(), pathValue(r, "networkId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch sources data")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	res, err := h.app.Search.Search(r.Context(), pathValue(r, "networkId"), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, search.ErrQueryRequired):
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
	case err != nil:
		h.fail(w, r, err, "Failed to perform search")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.app.Dashboard.Summary(r.Context(), pathValue(r, "networkId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch dashboard data")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := stats.Query{
		Network:  query.Get("network"),
		Interval: query.Get("interval"),
		Start:    query.Get("start"),
		End:      query.Get("end"),
	}

	res, err := h.app.Stats.Aggregate(r.Context(), q)
	var verr stats.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Network '%s' not found.", q.Network))
	case err != nil:
		h.fail(w, r, err, "Failed to fetch statistics data")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// fail logs err against the request trace and answers 500 with message.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.log.WithError(err).
		WithField("trace_id", middleware.TraceID(r.Context())).
		WithField("path", r.URL.Path).
		Error(message)
	writeError(w, http.StatusInternalServerError, message)
}

// pathValue returns the decoded path variable. The router matches on the
// encoded path so feed keys may carry escaped slashes.
func pathValue(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

var startDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseStartDate(raw string) (time.Time, bool) {
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
