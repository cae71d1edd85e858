package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/tabdiff/internal/core"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.ListTasks(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	task, err := s.service.GetTask(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in core.TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err)
		return
	}

	task, err := s.service.CreateTask(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := s.service.DeleteTask(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetTaskStatus pauses or resumes a task: {"status": "paused"}.
func (s *Server) handleSetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondServiceError(w, r, err)
		return
	}

	task, err := s.service.SetTaskStatus(r.Context(), id, body.Status)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, task)
}

// handleRunTasks runs every due task now instead of waiting for the scheduler.
func (s *Server) handleRunTasks(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.RunDueTasks(r.Context(), time.Now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, sum)
}
