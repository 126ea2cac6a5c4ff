package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(s *JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{s.AuthMiddleware()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		response.Success(c, gin.H{"id": GetUserID(c), "username": GetUsername(c), "role": GetRole(c)})
	})
	r.GET("/me", handlers...)
	return r
}

func doGet(r http.Handler, auth string) response.Response {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestService(time.Hour)
	r := newRouter(s)

	token, err := s.GenerateAccessToken(7, "bob", "USER")
	require.NoError(t, err)

	resp := doGet(r, "Bearer "+token)
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["id"])
	assert.Equal(t, "bob", data["username"])

	assert.Equal(t, response.CodeUnauthorized, doGet(r, "").Code)
	assert.Equal(t, response.CodeUnauthorized, doGet(r, "Token "+token).Code)
	assert.Equal(t, response.CodeUnauthorized, doGet(r, "Bearer garbage").Code)

	refresh, err := s.GenerateRefreshToken(7, "bob")
	require.NoError(t, err)
	assert.Equal(t, response.CodeUnauthorized, doGet(r, "Bearer "+refresh).Code)
}

func TestRequireRole(t *testing.T) {
	s := newTestService(time.Hour)
	r := newRouter(s, RequireRole("ADMIN", "MODERATOR"))

	user, _ := s.GenerateAccessToken(1, "u", "USER")
	admin, _ := s.GenerateAccessToken(2, "a", "ADMIN")

	assert.Equal(t, response.CodeForbidden, doGet(r, "Bearer "+user).Code)
	assert.Equal(t, response.CodeSuccess, doGet(r, "Bearer "+admin).Code)
}
