package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// ExportQueue is the operator view of the replay export queue.
type ExportQueue interface {
	GetFailedCount() int
	FailedItems() []export.Item
	RetryFailedItems() int
	Stats() export.Stats
}

// MissionStore reads stored missions.
type MissionStore interface {
	ListMissions(limit int) ([]store.MissionRecord, error)
	GetMission(missionID string) (store.MissionRecord, error)
	ListAttempts(missionID string) ([]store.AttemptRecord, error)
}

// ActiveLister lists running missions. *session.Director satisfies it.
type ActiveLister interface {
	Active() []string
}

// #region server

// Server is the operator HTTP surface.
type Server struct {
	queue    ExportQueue
	missions MissionStore
	active   ActiveLister
}

// NewServer creates a server. missions and active may be nil.
func NewServer(queue ExportQueue, missions MissionStore, active ActiveLister) *Server {
	return &Server{queue: queue, missions: missions, active: active}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/exports", func(r chi.Router) {
		r.Get("/stats", s.handleExportStats)
		r.Get("/failed", s.handleListFailed)
		r.Post("/retry", s.handleRetry)
	})
	r.Route("/missions", func(r chi.Router) {
		r.Get("/", s.handleListMissions)
		r.Get("/active", s.handleActive)
		r.Get("/{missionID}", s.handleGetMission)
	})
	return r
}

// #endregion server

// #region handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	failed := s.queue.GetFailedCount()
	status := "ok"
	if failed > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "failed": failed})
}

func (s *Server) handleExportStats(w http.ResponseWriter, r *http.Request) {
	st := s.queue.Stats()
	writeJSON(w, http.StatusOK, statsView{Pending: st.Pending, Failed: st.Failed, Delivered: st.Delivered, Running: st.Running})
}

func (s *Server) handleListFailed(w http.ResponseWriter, r *http.Request) {
	items := s.queue.FailedItems()
	views := make([]failedView, 0, len(items))
	for _, it := range items {
		views = append(views, failedView{ID: it.ID, Payload: export.PayloadOf(it)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(views), "items": views})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	n := s.queue.RetryFailedItems()
	log.Printf("[API] operator retry re-enqueued %d items (request %s)", n, middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]int{"requeued": n})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if s.active != nil {
		ids = s.active.Active()
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": ids})
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	if s.missions == nil {
		writeError(w, http.StatusServiceUnavailable, "mission store not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := s.missions.ListMissions(limit)
	if err != nil {
		log.Printf("[API] list missions: %v", err)
		writeError(w, http.StatusInternalServerError, "list missions failed")
		return
	}
	views := make([]missionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, toMissionView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": views})
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	if s.missions == nil {
		writeError(w, http.StatusServiceUnavailable, "mission store not configured")
		return
	}
	id := chi.URLParam(r, "missionID")
	rec, err := s.missions.GetMission(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mission not found")
		return
	}
	if err != nil {
		log.Printf("[API] get mission %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "get mission failed")
		return
	}
	attempts, err := s.missions.ListAttempts(id)
	if err != nil {
		log.Printf("[API] list attempts %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "list attempts failed")
		return
	}

	view := toMissionView(rec)
	for _, h := range rec.HeatLog {
		view.HeatLog = append(view.HeatLog, heatView(h))
	}
	for _, a := range attempts {
		view.Attempts = append(view.Attempts, attemptView{
			Attempt: a.Attempt, State: a.State, Error: a.Error, ReplayID: a.ReplayID, CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// #endregion handlers

// #region helpers

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// #endregion helpers
