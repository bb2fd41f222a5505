package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ims_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func TestHandleError_ConflictBecomesExists(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	handled := HandleError(c, apperr.Conflict("client already exists").WithDetails(map[string]string{"id": "c1"}))
	if !handled {
		t.Fatalf("expected error to be handled")
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	result := decodeResult(t, rec)
	if result.Status != StatusExists {
		t.Fatalf("expected EXISTS status, got %q", result.Status)
	}
	if result.Data == nil {
		t.Fatalf("expected existing row as data")
	}
}

func TestHandleError_UntypedErrorIsHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	HandleError(c, errors.New(`pq: relation "inquiries" does not exist`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	result := decodeResult(t, rec)
	if result.Message != msgInternalError {
		t.Fatalf("expected generic message, got %q", result.Message)
	}
	if len(c.Errors) != 1 {
		t.Fatalf("expected error attached to context, got %d", len(c.Errors))
	}
}

func TestHandleError_WrappedDomainErrorKeepsKind(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	err := errors.Join(apperr.NotFound("inquiry not found"))
	HandleError(c, err)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if result := decodeResult(t, rec); result.Status != StatusError {
		t.Fatalf("expected ERROR status, got %q", result.Status)
	}
}

func TestHandleError_NilIsNotHandled(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	if HandleError(c, nil) {
		t.Fatalf("expected nil error to be ignored")
	}
}
