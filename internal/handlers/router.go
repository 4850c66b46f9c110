// internal/handlers/router.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/middleware"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the REST API, health, metrics and the websocket endpoint.
func NewRouter(gs *GameServer) http.Handler {
	cfg := gs.opts.Config

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(gs.logger))
	r.Use(chimw.Heartbeat("/ping"))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", gs.healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", WSHandler(gs, middleware.NewConnLimiter(cfg.MaxConnsPerIP)))

	r.Route("/rooms", func(r chi.Router) {
		if cfg.HTTPRate > 0 {
			r.Use(middleware.NewIPRateLimiter(cfg.HTTPRate, cfg.HTTPBurst, 10*time.Minute).Middleware)
		}
		r.Post("/", gs.createRoomHandler)
		r.Get("/", gs.listRoomsHandler)
		r.Get("/{id}", gs.getRoomHandler)
	})
	return r
}

type createRoomRequest struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

// createRoomHandler registers a room without joining it. The caller becomes its
// creator and is recognised again when connecting over /ws with the same identity.
func (gs *GameServer) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, room.ErrInvalidMessage)
		return
	}
	kind, err := room.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	identity := resolveIdentity(r, gs.logger)
	rm, err := gs.CreateRoom(kind, identity, room.CreateOptions{Name: req.Name, Password: req.Password})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			gs.logger.WithError(err).WithField("kind", kind).Error("failed to create room")
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, rm.Summary())
}

func (gs *GameServer) listRoomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": gs.Registry.List()})
}

func (gs *GameServer) getRoomHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, room.ErrRoomNotFound)
		return
	}
	rm, ok := gs.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, room.ErrRoomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rm.Summary())
}

func (gs *GameServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rooms":  gs.Registry.Len(),
		"schedulers": map[string]bool{
			string(room.FamilyPaddle): gs.paddle.Running(),
			string(room.FamilyBlocks): gs.blocks.Running(),
		},
	})
}

// errorStatus maps a room error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrInvalidKind), errors.Is(err, room.ErrPasswordRequired), errors.Is(err, room.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, room.ErrCapacity):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as {code,message}. Errors that are not room errors are hidden
// behind a generic message.
func writeError(w http.ResponseWriter, status int, err error) {
	var re *room.Error
	if !errors.As(err, &re) {
		re = &room.Error{Code: "internal", Message: http.StatusText(status)}
	}
	writeJSON(w, status, re)
}
