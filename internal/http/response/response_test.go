package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
)

func perform(t *testing.T, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/", handler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestErrorRendersAPIErrEnvelope(t *testing.T) {
	w := perform(t, func(c *gin.Context) {
		Error(c, apierr.CheckpointWriteFailed(fmt.Errorf("connection refused")))
	})

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != apierr.CodeCheckpointWriteFailed {
		t.Fatalf("expected %s, got %s", apierr.CodeCheckpointWriteFailed, body.Error.Code)
	}
	if body.Error.Message == "" {
		t.Fatal("missing error message")
	}
}

func TestErrorWrapsPlainErrorsAs500(t *testing.T) {
	w := perform(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("boom"))
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
