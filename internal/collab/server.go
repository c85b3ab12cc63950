package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/spotter"
	"fleetspotter/internal/store"
	"fleetspotter/internal/types"
)

const maxBodyBytes = 256 * 1024

// RoomStore persists room state.
type RoomStore interface {
	SaveRoomState(ctx context.Context, room string, st types.SpotterState) error
	LoadRoomState(ctx context.Context, room, chainID string) (types.SpotterState, error)
}

// Server hosts collaboration rooms.
type Server struct {
	store RoomStore
	mu    sync.Mutex // serializes read-merge-write per server
	now   func() time.Time
	newID func() string
}

// NewServer creates a room server over store.
func NewServer(rs RoomStore) *Server {
	return &Server{
		store: rs,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Handler returns a router with the room endpoints mounted at the root.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the room endpoints on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/rooms", s.handleNewRoom)
	r.Route("/rooms/{room}/chains/{chain}", func(r chi.Router) {
		r.Get("/", s.handleGetState)
		r.Post("/solves", s.handlePostSolves)
		r.Post("/trials", s.handlePostTrials)
	})
}

func (s *Server) handleNewRoom(w http.ResponseWriter, r *http.Request) {
	room := s.newID()
	logging.Collab("room %s created", room)
	writeJSON(w, http.StatusCreated, RoomPayload{Room: room})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	room, chainID := chi.URLParam(r, "room"), chi.URLParam(r, "chain")
	st, err := s.store.LoadRoomState(r.Context(), room, chainID)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, "no state for this room and chain", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Get(logging.CategoryCollab).Error("load room %s chain %s: %v", room, chainID, err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePostSolves(w http.ResponseWriter, r *http.Request) {
	var req SolvesPayload
	if !decode(w, r, &req) {
		return
	}
	for _, sv := range req.Solves {
		if sv.Node < 0 || len(sv.Traits) == 0 {
			jsonErr(w, "solve needs a node and traits", http.StatusBadRequest)
			return
		}
	}
	s.merge(w, r, func(incoming *types.SpotterState) {
		for _, sv := range req.Solves {
			incoming.PutSolve(sv)
		}
	})
}

func (s *Server) handlePostTrials(w http.ResponseWriter, r *http.Request) {
	var req TrialsPayload
	if !decode(w, r, &req) {
		return
	}
	s.merge(w, r, func(incoming *types.SpotterState) {
		incoming.AttemptedCrew = append(incoming.AttemptedCrew, req.AttemptedCrew...)
		incoming.IgnoredTraits = append(incoming.IgnoredTraits, req.IgnoredTraits...)
		incoming.CrewMarks = types.MergeMarks(nil, req.CrewMarks)
		incoming.TraitMarks = types.MergeMarks(nil, req.TraitMarks)
	})
}

// merge reconciles a posted fragment into the room state and stores it.
func (s *Server) merge(w http.ResponseWriter, r *http.Request, fill func(*types.SpotterState)) {
	room, chainID := chi.URLParam(r, "room"), chi.URLParam(r, "chain")
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.LoadRoomState(ctx, room, chainID)
	if errors.Is(err, store.ErrNotFound) {
		current = types.NewSpotterState(chainID)
	} else if err != nil {
		logging.Get(logging.CategoryCollab).Error("load room %s chain %s: %v", room, chainID, err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}

	incoming := types.NewSpotterState(chainID)
	fill(&incoming)
	incoming.PostedAt = s.now()

	merged, err := spotter.Reconcile(current, incoming)
	if err != nil {
		jsonErr(w, err.Error(), http.StatusConflict)
		return
	}
	merged.PostedAt = incoming.PostedAt
	if err := s.store.SaveRoomState(ctx, room, merged); err != nil {
		logging.Get(logging.CategoryCollab).Error("save room %s chain %s: %v", room, chainID, err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	logging.AuditWithChain(chainID).Transition(logging.AuditCollabPost, -1, room, nil)
	writeJSON(w, http.StatusOK, merged)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, errorPayload{Error: msg})
}
