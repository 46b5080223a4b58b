package utils

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/shared/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorResponseWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
		wantMsg  string
	}{
		{"not found", errors.NewNotFoundError("turn not found"), http.StatusNotFound, "not_found", "turn not found"},
		{"unavailable", errors.NewUnavailableError("store unavailable"), http.StatusServiceUnavailable, "unavailable", "store unavailable"},
		{"plain error hidden", stderrors.New("dial tcp: refused"), http.StatusInternalServerError, "internal_error", "Internal server error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponseWithError(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantType, resp.Error.Type)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
		})
	}
}

func TestListSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ListSuccessResponse(c, []string{"a", "b"}, 2)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"items":["a","b"],"total":2}}`, w.Body.String())
}
