package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func recordResponse(t *testing.T, fn func(c *gin.Context)) Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestErrorHelpersUseExpectedCodes(t *testing.T) {
	cases := []struct {
		name string
		fn   func(c *gin.Context)
		code int
	}{
		{"bad_request", func(c *gin.Context) { BadRequest(c, "bad") }, CodeBadRequest},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "no token") }, CodeUnauthorized},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "denied") }, CodeForbidden},
		{"not_found", func(c *gin.Context) { NotFound(c, "missing") }, CodeNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := recordResponse(t, tc.fn)
			if resp.StatusCode != tc.code {
				t.Fatalf("status_code = %d, want %d", resp.StatusCode, tc.code)
			}
			if resp.Msg == "" {
				t.Fatalf("msg should carry the error message")
			}
		})
	}
}

func TestErrorAttachesRequestID(t *testing.T) {
	resp := recordResponse(t, func(c *gin.Context) {
		c.Set("request_id", "req-123")
		Forbidden(c, "denied")
	})
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data should be an object, got %T", resp.Data)
	}
	if data["request_id"] != "req-123" {
		t.Fatalf("request_id = %v, want req-123", data["request_id"])
	}
}
