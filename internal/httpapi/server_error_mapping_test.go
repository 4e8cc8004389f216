package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"scoutd/internal/loader"
	"scoutd/internal/worker"
)

func postInfer(t *testing.T, svc Service) *httptest.ResponseRecorder {
	t.Helper()
	r := NewMux(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/infer", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestInfer_ModelNotFoundMaps404(t *testing.T) {
	w := postInfer(t, &mockService{inferErr: worker.ErrModelNotFound("m-missing")})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInfer_TooBusyMaps429(t *testing.T) {
	w := postInfer(t, &mockService{inferErr: loader.ErrTooBusy("org/m")})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestInfer_AllDevicesFailedMaps503(t *testing.T) {
	err := loader.ErrAllDevicesFailed("org/m", []error{errors.New("cuda: no gpu"), errors.New("cpu: oom")})
	w := postInfer(t, &mockService{inferErr: err})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestInfer_HTTPErrorStatusRespected(t *testing.T) {
	w := postInfer(t, &mockService{inferErr: mockHTTPError{msg: "teapot", code: http.StatusTeapot}})
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", w.Code)
	}
}
