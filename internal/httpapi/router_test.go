package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yuno/sentinel/internal/errs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runWriteError(err error) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	writeError(c, err)
	return rec
}

func TestWriteErrorValidationMapsTo400(t *testing.T) {
	rec := runWriteError(errs.Validation("country", errors.New("required")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["field"] != "country" {
		t.Fatalf("expected field=country in body, got %v", body["field"])
	}
}

func TestWriteErrorTransientMapsTo503(t *testing.T) {
	rec := runWriteError(errs.Transient(errors.New("db unreachable")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rec.Code)
	}
}

func TestWriteErrorUnclassifiedMapsTo500(t *testing.T) {
	rec := runWriteError(errors.New("mystery failure"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rec.Code)
	}
}
