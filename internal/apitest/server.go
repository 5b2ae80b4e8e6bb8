// Package apitest is an in-process fake of the dealership analytics API.
// Tests start it on httptest; `showroom devserver` serves it on a real port
// seeded with demo data.
package apitest

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/Veraticus/showroom/internal/model"
)

// RecordedRequest is what the server saw of one call.
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	RequestID     string
	Authorization string
	ContentType   string
}

type failure struct {
	detail string
	status int
}

type sheet struct {
	columns    []string
	rows       []model.Row
	newlyAdded []int
}

// Server holds the fake API's state. It is safe for concurrent use.
type Server struct {
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu          sync.Mutex
	secret      []byte
	tokenTTL    time.Duration
	users       map[string][]byte
	kpis        map[int]map[string]model.KPISnapshot
	monthOrder  map[int][]string
	sheets      map[string]*sheet
	sheetOrder  []string
	objects     map[string][]byte
	downloads   map[string]bool
	failures    map[string]failure
	requests    []RecordedRequest
	bucket      string
	s3Ready     bool
	revokedJTIs map[string]bool
}

// Option configures a Server.
type Option func(*Server)

// WithUser registers a login. The password is stored as a bcrypt hash.
func WithUser(username, password string) Option {
	return func(s *Server) {
		if err := s.AddUser(username, password); err != nil {
			panic(err)
		}
	}
}

// WithSecret fixes the token signing key. A random key is used otherwise.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

// WithStorageConfigured toggles whether raw uploads are accepted.
func WithStorageConfigured(ready bool) Option {
	return func(s *Server) {
		s.s3Ready = ready
	}
}

// WithLogger sets the logger for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for tokens and dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		logger:      slog.Default(),
		now:         time.Now,
		tokenTTL:    12 * time.Hour,
		users:       make(map[string][]byte),
		kpis:        make(map[int]map[string]model.KPISnapshot),
		monthOrder:  make(map[int][]string),
		sheets:      make(map[string]*sheet),
		objects:     make(map[string][]byte),
		downloads:   make(map[string]bool),
		failures:    make(map[string]failure),
		revokedJTIs: make(map[string]bool),
		bucket:      "showroom-dealer-data",
		s3Ready:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			panic(err)
		}
	}
	return s
}

// Start serves s on a loopback port until the test ends and returns its URL.
func Start(tb testing.TB, s *Server) string {
	tb.Helper()
	ts := httptest.NewServer(s.Handler())
	tb.Cleanup(ts.Close)
	return ts.URL
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(s.recordRequest, s.injectFailures)

	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/downloads/{token}", s.handleDownloadFile).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/years", s.handleYears).Methods(http.MethodGet)
	api.HandleFunc("/months/{year}", s.handleMonths).Methods(http.MethodGet)
	api.HandleFunc("/kpis", s.handleAllKPIs).Methods(http.MethodGet)
	api.HandleFunc("/kpis/{year}/{month}", s.handleKPIs).Methods(http.MethodGet)
	api.HandleFunc("/s3/status", s.handleStorageStatus).Methods(http.MethodGet)
	api.HandleFunc("/s3/upload", s.handleRawUpload).Methods(http.MethodPost)
	api.HandleFunc("/deal-summary/process", s.handleDealSummary).Methods(http.MethodPost)
	api.HandleFunc("/master-sheet/sheets", s.handleSheets).Methods(http.MethodGet)
	api.HandleFunc("/master-sheet/data", s.handleSheetData).Methods(http.MethodGet)
	api.HandleFunc("/master-sheet/download", s.handleDownloadLink).Methods(http.MethodGet)

	return r
}

// FailWith makes every request to path answer status with detail until
// ClearFailures. An empty detail sends an empty JSON object.
func (s *Server) FailWith(path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, detail: detail}
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// SetKPIs stores the snapshot served for year and month. Months keep the
// order they were first added in.
func (s *Server) SetKPIs(year int, month string, snap model.KPISnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(month)
	if s.kpis[year] == nil {
		s.kpis[year] = make(map[string]model.KPISnapshot)
	}
	if _, ok := s.kpis[year][key]; !ok {
		s.monthOrder[year] = append(s.monthOrder[year], key)
	}
	if snap.Month == "" {
		snap.Month = month
	}
	s.kpis[year][key] = snap
}

// SetSheet replaces a master-sheet tab.
func (s *Server) SetSheet(name string, columns []string, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSheetLocked(name, columns, rows)
}

func (s *Server) setSheetLocked(name string, columns []string, rows []model.Row) *sheet {
	if _, ok := s.sheets[name]; !ok {
		s.sheetOrder = append(s.sheetOrder, name)
	}
	sh := &sheet{columns: append([]string(nil), columns...)}
	for _, r := range rows {
		sh.rows = append(sh.rows, copyRow(r))
	}
	s.sheets[name] = sh
	return sh
}

// Objects returns the keys of every raw upload stored so far.
func (s *Server) Objects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			RequestID:     r.Header.Get("X-Request-ID"),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		}
		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.logger.Debug("Served request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"request_id", rec.RequestID,
			"duration", s.now().Sub(start))
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.detail == "" {
			writeJSON(w, f.status, map[string]string{})
			return
		}
		writeDetail(w, f.status, f.detail)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func copyRow(r model.Row) model.Row {
	out := make(model.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
