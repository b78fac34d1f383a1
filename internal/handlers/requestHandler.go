package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/itdjship/chat-bot-app/internal/adapter"
	"github.com/itdjship/chat-bot-app/internal/adapter/utils"
	"github.com/itdjship/chat-bot-app/internal/api"
	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id               string
	sessionId        string
	message          string
	traceId          string
	isDocumentIngest bool
	documentName     string
	documentPath     string
	documentSize     int64
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// CreateSessionHandler godoc
// @Summary      Create a chat session
// @Description  Creates a fresh session in the NO_INDEX state. Upload a document before asking questions.
// @Tags         Sessions
// @Produce      json
// @Success      201  {object}  api.SessionResponse
// @Router       /sessions [post]
func CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid context by request", "remote", r.RemoteAddr)
		return
	}
	session, err := handlerInstance.service.SessionStore.CreateSession(r.Context())
	if err != nil {
		logRH.Error("Failed to create session", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not create session")
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToSessionResponse(session))
}

// ChatHandler godoc
// @Summary      Ask a question in a session
// @Description  Accepts a message, queues a background query job and returns a job ID to poll for the answer. A session runs one job at a time.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Session ID"
// @Param        request  body      api.ChatRequest  true  "Chat message"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data"
// @Failure      404      {object}  api.JobResponse      "Session not found"
// @Failure      409      {object}  api.JobResponse      "Session already has a job in flight"
// @Router       /sessions/{id}/chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid context by request", "remote", request.RemoteAddr)
		return
	}

	sessionId, ok := requireSession(w, request)
	if !ok {
		return
	}

	var requestData api.ChatRequest
	defer closeBody(request.Body)
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || requestData.Message == "" {
		logRH.Warn("Bad chat request", "error", err, "sessionId", sessionId)
		WriteErrorResponse(w, http.StatusBadRequest, sessionId, "Bad Request")
		return
	}

	if !acquireSession(w, request, sessionId) {
		return
	}

	newJob := newJobData{
		id:        utils.GetNewUUID(),
		sessionId: sessionId,
		message:   requestData.Message,
		traceId:   traceIdFrom(request),
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// PostIngestHandler godoc
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job for the session.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        id             path      string  true  "Session ID"
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF or DOCX file to upload"
// @Success      202  {object}  api.InitJobResponse  "Accepted"
// @Failure      400  {object}  api.JobResponse      "Bad Request - missing fields or file too large"
// @Failure      409  {object}  api.JobResponse      "Session already has a job in flight"
// @Failure      500  {object}  api.JobResponse      "Storage or write error"
// @Router       /sessions/{id}/ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid context by request", "remote", r.RemoteAddr)
		return
	}

	sessionId, ok := requireSession(w, r)
	if !ok {
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory", "error", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, sessionId, errString)
		return
	}

	const maxUploadSize = 32 << 20 //32mb
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, sessionId, "File too large or bad request")
		return
	}

	docName := r.FormValue("document_name")
	if docName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, sessionId, "document_name is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, sessionId, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	tempFilePath := filepath.Join(targetDir, filename)
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, sessionId, "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	written, err := io.Copy(destinationFileWriter, fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, sessionId, "Write error")
		return
	}

	if !acquireSession(w, r, sessionId) {
		if removeErr := os.Remove(tempFilePath); removeErr != nil {
			logRH.Error("Failed to clean up rejected upload", "path", tempFilePath, "error", removeErr)
		}
		return
	}

	newJob := newJobData{
		id:               utils.GetNewUUID(),
		sessionId:        sessionId,
		traceId:          traceIdFrom(r),
		isDocumentIngest: true,
		documentName:     docName,
		documentPath:     tempFilePath,
		documentSize:     written,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID. This is the pending indicator: poll until COMPLETE or ERROR.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(r, idString)

	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// GetTranscriptHandler godoc
// @Summary      Get session transcript
// @Description  Returns the full (role, text) transcript for a session, oldest first.
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.TranscriptResponse
// @Failure      404  {object}  api.JobResponse  "Session not found"
// @Router       /sessions/{id}/transcript [get]
func GetTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	sessionId, ok := requireSession(w, r)
	if !ok {
		return
	}
	turns, err := handlerInstance.service.SessionStore.Transcript(r.Context(), sessionId)
	if err != nil {
		logRH.Error("Failed to read transcript", "sessionId", sessionId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, sessionId, "Could not read transcript")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTranscriptResponse(sessionId, turns))
}

// GetUploadsHandler godoc
// @Summary      Get session upload history
// @Description  Returns the per-ingestion summary records (filename, size, chunk count, timestamp) for a session.
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.UploadsResponse
// @Failure      404  {object}  api.JobResponse  "Session not found"
// @Router       /sessions/{id}/uploads [get]
func GetUploadsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	sessionId, ok := requireSession(w, r)
	if !ok {
		return
	}
	session, _ := handlerInstance.service.SessionStore.GetSession(r.Context(), sessionId)
	writeJsonResponse(w, http.StatusOK, adapter.ToUploadsResponse(session))
}

// GetIndexHealthHandler godoc
// @Summary      Check vector index health
// @Description  Pings the configured vector index backend.
// @Tags         Index
// @Produce      json
// @Success      200  {object}  api.IndexStatusResponse
// @Failure      503  {object}  api.IndexStatusResponse
// @Router       /index/health [get]
func GetIndexHealthHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	resp := api.IndexStatusResponse{Backend: handlerInstance.indexes.Backend(), Status: "connected"}
	if err := handlerInstance.indexes.Ping(r.Context()); err != nil {
		resp.Status = "disconnected"
		resp.Error = err.Error()
		writeJsonResponse(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJsonResponse(w, http.StatusOK, resp)
}

// PostIndexReconnectHandler godoc
// @Summary      Retry the vector index connection
// @Description  Manually re-establishes the connection for networked index backends. In-memory backends need no reconnect.
// @Tags         Index
// @Produce      json
// @Success      200  {object}  api.IndexStatusResponse
// @Failure      503  {object}  api.IndexStatusResponse
// @Router       /index/reconnect [post]
func PostIndexReconnectHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	resp := api.IndexStatusResponse{Backend: handlerInstance.indexes.Backend(), Status: "connected"}

	reconnectable, ok := handlerInstance.indexes.(vectorindex.Reconnectable)
	if !ok {
		writeJsonResponse(w, http.StatusOK, resp)
		return
	}
	if err := reconnectable.Reconnect(r.Context()); err != nil {
		logRH.Error("Index reconnect failed", "error", err)
		resp.Status = "disconnected"
		resp.Error = err.Error()
		writeJsonResponse(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJsonResponse(w, http.StatusOK, resp)
}

func traceIdFrom(r *http.Request) string {
	if trace, ok := r.Context().Value(config.TRACE_ID_KEY).(string); ok {
		return trace
	}
	return ""
}
