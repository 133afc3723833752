package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/domain"
	apimw "github.com/hamed0406/nettester/internal/httpapi/middleware"
	"github.com/hamed0406/nettester/internal/metrics"
	"github.com/hamed0406/nettester/internal/repo"
)

const (
	longPollTimeout = 25 * time.Second
	wsWriteTimeout  = 5 * time.Second
)

// Starter launches one diagnosis. *diagnose.Engine implements it.
type Starter interface {
	Start(iface string) *diagnose.Run
}

type Server struct {
	Logger  *zap.Logger
	Engine  Starter
	Runs    repo.RunStore
	Timings *metrics.ProbeTimings
}

func NewServer(l *zap.Logger, engine Starter, runs repo.RunStore, timings *metrics.ProbeTimings) *Server {
	return &Server{Logger: l, Engine: engine, Runs: runs, Timings: timings}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))

		r.Get("/stats", s.handleStats)
		r.Get("/runs", s.handleListRuns)
		r.With(apimw.RequireAdmin(keys)).Post("/runs", s.handleStartRun)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/events", s.handleEvents)
		r.Get("/runs/{id}/ws", s.handleEventsWS)
	})

	return r
}

type startPayload struct {
	Interface string `json:"interface"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var p startPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	p.Interface = strings.TrimSpace(p.Interface)
	if !isValidInterfaceName(p.Interface) {
		writeError(w, http.StatusBadRequest, "invalid interface name")
		return
	}

	run, err := s.Runs.Launch(r.Context(), func() *diagnose.Run { return s.Engine.Start(p.Interface) })
	if errors.Is(err, repo.ErrRunInFlight) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start")
		return
	}

	s.Logger.Info("run_started",
		zap.String("run_id", run.ID),
		zap.String("interface", run.Interface),
	)
	writeJSON(w, http.StatusAccepted, run.Summary())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Runs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":    run.Summary(),
		"events": nonNil(run.Events.Since(0)),
	})
}

// handleEvents serves events after ?since=N. With ?wait=1 it long-polls
// until something new arrives or the run finishes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since")
		return
	}

	var (
		evs  []domain.StatusEvent
		done bool
	)
	if r.URL.Query().Get("wait") == "1" {
		ctx, cancel := context.WithTimeout(r.Context(), longPollTimeout)
		defer cancel()
		evs, done, err = run.Events.Wait(ctx, since)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return // client went away
		}
	} else {
		evs = run.Events.Since(since)
		done = run.Events.Finished()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": nonNil(evs),
		"done":   done,
	})
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

// handleEventsWS pushes each event as a JSON text frame, then closes
// normally once the terminal event was sent.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var seq int64
	for {
		evs, done, err := run.Events.Wait(ctx, seq)
		if err != nil {
			return
		}
		for _, ev := range evs {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.Logger.Debug("ws_write_error", zap.String("run_id", run.ID), zap.Error(err))
				return
			}
			seq = ev.Seq
		}
		if done {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(run.Summary().Verdict))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
			return
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"probes": nonNilTimings(s.Timings.Snapshot()),
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*diagnose.Run, bool) {
	run, err := s.Runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup error")
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

// isValidInterfaceName accepts Linux interface names (at most 15 bytes, no
// slash or whitespace). A leading dash is rejected so the name can never be
// taken as an option by the external tools.
func isValidInterfaceName(name string) bool {
	if name == "" || len(name) > 15 || strings.HasPrefix(name, "-") {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	for _, c := range name {
		if c <= ' ' || c == '/' || c > '~' {
			return false
		}
	}
	return true
}

func parseSince(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid since")
	}
	return n, nil
}

func nonNil(evs []domain.StatusEvent) []domain.StatusEvent {
	if evs == nil {
		return []domain.StatusEvent{}
	}
	return evs
}

func nonNilTimings(t []metrics.ProbeTiming) []metrics.ProbeTiming {
	if t == nil {
		return []metrics.ProbeTiming{}
	}
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
