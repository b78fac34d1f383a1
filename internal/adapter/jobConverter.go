package adapter

import (
	"fmt"
	"time"

	"github.com/itdjship/chat-bot-app/internal/api"
	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobmodel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
		IngestResult:        ToIngestResult(job),
	}

	return api.JobResponse{
		Id:        job.Id,
		SessionId: job.SessionId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobmodel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  ragData.Sources,
	}
}

func ToIngestResult(job jobmodel.Job) *api.IngestResponse {
	if job.JobType != jobmodel.JobTypeIngest || job.JobPayload.ChunkCount == 0 {
		return nil
	}
	return &api.IngestResponse{
		Filename:   job.JobPayload.IngestFileName,
		ChunkCount: job.JobPayload.ChunkCount,
	}
}

func ToSessionResponse(session chatmodel.Session) api.SessionResponse {
	return api.SessionResponse{
		Id:        session.Id,
		State:     string(session.State),
		CreatedAt: session.CreatedAt,
	}
}

func ToTranscriptResponse(sessionId string, turns []chatmodel.Turn) api.TranscriptResponse {
	out := make([]api.TranscriptTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, api.TranscriptTurn{Role: string(t.Role), Text: t.Text})
	}
	return api.TranscriptResponse{SessionId: sessionId, Turns: out}
}

func ToUploadsResponse(session chatmodel.Session) api.UploadsResponse {
	uploads := make([]api.UploadSummary, 0, len(session.Uploads))
	for _, u := range session.Uploads {
		uploads = append(uploads, api.UploadSummary{
			Filename:   u.Filename,
			SizeBytes:  u.SizeBytes,
			ChunkCount: u.ChunkCount,
			Timestamp:  u.Timestamp,
		})
	}
	return api.UploadsResponse{SessionId: session.Id, Uploads: uploads}
}

func BadRequest(id string, errMessage string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: errMessage,
			Retry:   false,
		},
	}
}
