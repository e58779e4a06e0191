package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/models"
)

func newUploadRequest(t *testing.T, build func(w *multipart.Writer)) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	build(w)
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/files", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeErrorKind(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorKind {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v\n%s", err, rec.Body.String())
	}
	return resp.Error.Kind
}

func performUpload(req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req

	h := &FileHandler{}
	h.Upload(c)
	return rec
}

func TestUpload_RejectsBothFileAndDirectory(t *testing.T) {
	req := newUploadRequest(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("file", "a.txt")
		fw.Write([]byte("hello"))
		w.WriteField("directory", "/data/docs")
	})

	rec := performUpload(req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if kind := decodeErrorKind(t, rec); kind != models.KindValidation {
		t.Errorf("kind = %q, want %q", kind, models.KindValidation)
	}
}

func TestUpload_RejectsMultipartWithoutFile(t *testing.T) {
	req := newUploadRequest(t, func(w *multipart.Writer) {
		w.WriteField("purpose", "assistants")
	})

	rec := performUpload(req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if kind := decodeErrorKind(t, rec); kind != models.KindValidation {
		t.Errorf("kind = %q, want %q", kind, models.KindValidation)
	}
}

func TestUpload_RejectsEmptyDirectoryBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/files", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rec := performUpload(req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if kind := decodeErrorKind(t, rec); kind != models.KindValidation {
		t.Errorf("kind = %q, want %q", kind, models.KindValidation)
	}
}
