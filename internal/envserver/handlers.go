package envserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vovakirdan/blockfall/internal/agent"
	"github.com/vovakirdan/blockfall/internal/registry"
	"github.com/vovakirdan/blockfall/internal/storage"
)

type createRequest struct {
	Seed    *int64 `json:"seed"`
	Variant string `json:"variant"`
}

type resetRequest struct {
	Seed *int64 `json:"seed"`
}

type stepRequest struct {
	Action *int `json:"action"`
}

// envResponse describes one environment.
type envResponse struct {
	ID          string            `json:"id"`
	Variant     string            `json:"variant"`
	Seed        int64             `json:"seed"`
	Done        bool              `json:"done"`
	EpisodeID   string            `json:"episode_id,omitempty"`
	Observation agent.Observation `json:"observation"`
	Info        agent.Info        `json:"info"`
	// Board is a text rendering with the falling piece and its ghost.
	Board string `json:"board,omitempty"`
}

type stepResponse struct {
	agent.StepResult
	Done bool `json:"done"`
}

type healthResponse struct {
	Status string `json:"status"`
	Envs   int    `json:"envs"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Envs:   s.envs.Len(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.List())
}

func (s *Server) handleSpaces(w http.ResponseWriter, r *http.Request) {
	variant := r.URL.Query().Get("variant")
	if variant == "" {
		variant = s.opts.DefaultVariant
	}
	rules, err := s.opts.Rules(variant)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	env, err := agent.NewEnv(rules, 0)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, env.Spaces())
}

func (s *Server) handleListEnvs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"ids": s.envs.IDs()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Variant == "" {
		req.Variant = s.opts.DefaultVariant
	}
	seed := s.now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	rules, err := s.opts.Rules(req.Variant)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	env, err := agent.NewEnv(rules, seed)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	e := &envEntry{env: env, variant: req.Variant}
	id := s.envs.Add(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	s.startRecording(id, e)

	s.logger.Info("env created", "id", id, "variant", req.Variant, "seed", seed)
	writeJSON(w, http.StatusCreated, s.view(id, e, false))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, s.view(id, e, true))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.envs.Remove(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownEnv, id))
		return
	}
	s.close(id, e, "deleted")
	s.logger.Info("env deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()

	seed := e.env.Seed() + 1
	if req.Seed != nil {
		seed = *req.Seed
	}

	s.finishRecording(id, e, "stopped")
	e.env.Reset(seed)
	s.startRecording(id, e)

	s.logger.Debug("env reset", "id", id, "seed", seed)
	writeJSON(w, http.StatusOK, s.view(id, e, false))
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Action == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("action is required"))
		return
	}
	action, err := agent.ParseAction(*req.Action)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	defer e.mu.Unlock()

	res, err := e.env.Step(action)
	if errors.Is(err, agent.ErrEpisodeOver) {
		s.writeError(w, r, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	s.recordStep(id, e, action, res)
	if e.env.Done() {
		s.logger.Debug("episode ended", "id", id, "score", res.Info.Score, "steps", res.Info.Steps, "terminated", res.Terminated)
		s.finishRecording(id, e, endReason(res))
	}

	writeJSON(w, http.StatusOK, stepResponse{StepResult: res, Done: e.env.Done()})
}

// lookup finds the env named in the URL and returns it locked.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *envEntry, bool) {
	id := chi.URLParam(r, "id")
	e, ok := s.envs.Get(id)
	if ok {
		e.mu.Lock()
		if !e.closed {
			return id, e, true
		}
		e.mu.Unlock()
	}
	s.writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownEnv, id))
	return id, nil, false
}

// view must be called with e.mu held.
func (s *Server) view(id string, e *envEntry, withBoard bool) envResponse {
	resp := envResponse{
		ID:          id,
		Variant:     e.variant,
		Seed:        e.env.Seed(),
		Done:        e.env.Done(),
		Observation: e.env.Observation(),
		Info:        e.env.Info(),
	}
	if e.rec != nil {
		resp.EpisodeID = e.rec.EpisodeID()
	}
	if withBoard {
		if snap, err := e.env.Snapshot(); err == nil {
			resp.Board = snap.String()
		}
	}
	return resp
}

// startRecording must be called with e.mu held.
func (s *Server) startRecording(id string, e *envEntry) {
	if s.opts.Store == nil {
		return
	}
	rec, err := s.opts.Store.NewRecorder(e.variant, "remote", e.env.Seed(), 0)
	if err != nil {
		s.logger.Warn("cannot start recording", "id", id, "err", err)
		return
	}
	e.rec = rec
}

func (s *Server) recordStep(id string, e *envEntry, a agent.Action, res agent.StepResult) {
	if e.rec == nil {
		return
	}
	err := e.rec.Record(storage.Transition{
		Step:         res.Info.Steps,
		Action:       int(a),
		Reward:       res.Reward,
		Score:        res.Info.Score,
		LinesCleared: res.Info.Cleared,
		Terminated:   res.Terminated,
		Truncated:    res.Truncated,
	})
	if err != nil {
		s.logger.Warn("cannot record step, recording disabled", "id", id, "err", err)
		e.rec = nil
	}
}

// finishRecording must be called with e.mu held.
func (s *Server) finishRecording(id string, e *envEntry, reason string) {
	if e.rec == nil {
		return
	}
	info := e.env.Info()
	err := e.rec.Finish(storage.EpisodeResult{
		Score:     info.Score,
		Lines:     info.Lines,
		Level:     info.Level,
		Steps:     info.Steps,
		EndReason: reason,
	})
	if err != nil {
		s.logger.Warn("cannot finish recording", "id", id, "err", err)
	}
	e.rec = nil
}

func endReason(res agent.StepResult) string {
	if res.Terminated {
		return "game_over"
	}
	return "truncated"
}

// decodeBody decodes a JSON body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
