package middleware

import (
	"net/http"
	"strconv"

	"github.com/itdjship/chat-bot-app/internal/handlers"
	"github.com/itdjship/chat-bot-app/internal/metrics"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var GetHandler = Wrap(handlers.GetHandler)

var CreateSessionHandler = Wrap(handlers.CreateSessionHandler)
var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var GetTranscriptHandler = Wrap(handlers.GetTranscriptHandler)
var GetUploadsHandler = Wrap(handlers.GetUploadsHandler)
var GetIndexHealthHandler = Wrap(handlers.GetIndexHealthHandler)
var PostIndexReconnectHandler = Wrap(handlers.PostIndexReconnectHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200}
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = rateLimiter(re)
	return re
}
