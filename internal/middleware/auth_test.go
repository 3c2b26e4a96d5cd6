package middleware

import (
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasRole(t *testing.T) {
	// 管理员拥有全部权限
	assert.True(t, HasRole(model.Admin, model.Instructor))
	assert.True(t, HasRole(model.Admin, model.Student))
	assert.True(t, HasRole(model.Admin))

	assert.True(t, HasRole(model.Instructor, model.Instructor))
	assert.False(t, HasRole(model.Instructor, model.Admin))
	assert.False(t, HasRole(model.Student, model.Instructor))
	assert.False(t, HasRole(model.Student))
}

func testAuthConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret-0123456789abcdef", ExpireTime: time.Hour},
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testAuthConfig()

	router := gin.New()
	router.GET("/protected", AuthMiddleware(cfg), func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		require.NotNil(t, claims)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})

	t.Run("无token拒绝", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("非法token拒绝", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("合法token放行", func(t *testing.T) {
		user := &model.User{BaseModel: model.BaseModel{ID: 42}, Email: "t@example.com", Role: model.Student}
		token, err := util.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "42")
	})
}

func TestRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testAuthConfig()

	router := gin.New()
	router.GET("/instructor-only",
		AuthMiddleware(cfg),
		RoleMiddleware(model.Instructor),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	call := func(role model.UserRole) int {
		user := &model.User{BaseModel: model.BaseModel{ID: 1}, Role: role}
		token, err := util.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/instructor-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, call(model.Student))
	assert.Equal(t, http.StatusOK, call(model.Instructor))
	assert.Equal(t, http.StatusOK, call(model.Admin))
}
