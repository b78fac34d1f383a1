package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// The recorder must intercept WriteHeader through the http.ResponseWriter
// interface, otherwise every request is counted as a 200.
func TestHttpStatusRecorder_CapturesHandlerStatus(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &HttpStatusRecorder{ResponseWriter: underlying, Status: 200}

	var w http.ResponseWriter = rec
	w.WriteHeader(http.StatusNotFound)

	if rec.Status != http.StatusNotFound {
		t.Errorf("Expected recorded status 404, got %d", rec.Status)
	}
	if underlying.Code != http.StatusNotFound {
		t.Errorf("Expected underlying writer status 404, got %d", underlying.Code)
	}
}

func TestHttpStatusRecorder_DefaultsWhenHandlerNeverWritesHeader(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &HttpStatusRecorder{ResponseWriter: underlying, Status: 200}

	var w http.ResponseWriter = rec
	if _, err := w.Write([]byte("ok")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if rec.Status != http.StatusOK {
		t.Errorf("Expected recorded status 200, got %d", rec.Status)
	}
}
