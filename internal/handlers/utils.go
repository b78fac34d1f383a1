package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/itdjship/chat-bot-app/internal/adapter"
	"github.com/itdjship/chat-bot-app/internal/adapter/utils"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, errMessage string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, errMessage, httpCode))
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logRH.Error("Couldn't close request body", "error", err)
	}
}

func validateId(r *http.Request, id string) (result jobmodel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty job ID")
		return jobmodel.Job{}, false
	}
	return GetJobStatus(r.Context(), id)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

// requireSession resolves the {id} URL param to an existing session, writing
// the 404 on miss.
func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionId := utils.GetChiURLParam(r, "id")
	if sessionId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "session id is required")
		return "", false
	}
	if _, found := handlerInstance.service.SessionStore.GetSession(r.Context(), sessionId); !found {
		WriteErrorResponse(w, http.StatusNotFound, sessionId, "Session not found")
		return "", false
	}
	return sessionId, true
}

// acquireSession takes the per-session in-flight guard, writing the 409 when
// another job is already running. The worker releases it when the job ends.
func acquireSession(w http.ResponseWriter, r *http.Request, sessionId string) bool {
	acquired, err := handlerInstance.service.SessionStore.TryAcquire(r.Context(), sessionId)
	if err != nil {
		logRH.Error("Failed to acquire session", "sessionId", sessionId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, sessionId, "Could not start job")
		return false
	}
	if !acquired {
		WriteErrorResponse(w, http.StatusConflict, sessionId, "Session already has a request in flight")
		return false
	}
	return true
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}
