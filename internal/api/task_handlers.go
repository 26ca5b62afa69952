package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/practice-backend/internal/task"
)

func createTaskHandler(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		t, warnings, err := svc.CreateTask(r.Context(), PractitionerID(r.Context()), req.toInput())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, TaskEnvelope{Task: toTaskResponse(t), Warnings: warnings})
	}
}

func updateTaskHandler(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_task_id", "id must be a valid UUID")
			return
		}

		var req TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		t, warnings, err := svc.UpdateTask(r.Context(), PractitionerID(r.Context()), id, req.toInput())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, TaskEnvelope{Task: toTaskResponse(t), Warnings: warnings})
	}
}

func deleteTaskHandler(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_task_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteTask(r.Context(), PractitionerID(r.Context()), id); err != nil {
			handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getTaskHandler(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_task_id", "id must be a valid UUID")
			return
		}

		t, err := svc.GetTask(r.Context(), PractitionerID(r.Context()), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTaskResponse(t))
	}
}

func listTasksHandler(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := timeRange(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_range", "from/to must be RFC 3339 timestamps")
			return
		}

		tasks, err := svc.ListTasks(r.Context(), PractitionerID(r.Context()), from, to)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]TaskResponse, 0, len(tasks))
		for i := range tasks {
			resp = append(resp, toTaskResponse(&tasks[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
