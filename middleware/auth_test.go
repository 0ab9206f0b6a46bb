package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func tokenFor(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := utils.GenerateToken(models.User{
		ID:       primitive.NewObjectID(),
		Username: "tester",
		FullName: "Field Tester",
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		user, err := utils.GetUser(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": user.AsActor().Name, "role": user.Role})
	})
	r.POST("/api/projects/:id/progress", handlers...)
	return r
}

func call(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/projects/P-1/progress", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := protectedRouter()

	w := call(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")

	w = call(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")

	w = call(r, tokenFor(t, models.UserRoleJE))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Field Tester","role":"JE"}`, w.Body.String())
}

func TestAuthMiddlewareRejectsUnknownRole(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       primitive.NewObjectID().Hex(),
		"username": "intruder",
		"role":     "SUPER_ADMIN",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	// 默认签名密钥
	signed, err := token.SignedString([]byte("your-secret-key"))
	require.NoError(t, err)

	w := call(protectedRouter(), signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestPermissionMiddleware(t *testing.T) {
	r := protectedRouter(PermissionMiddleware("progress", "update"))

	tests := []struct {
		role   models.UserRole
		status int
	}{
		{models.UserRoleADMIN, http.StatusOK},
		{models.UserRoleJE, http.StatusOK},
		{models.UserRoleAEE, http.StatusForbidden},
		{models.UserRoleVIEWER, http.StatusForbidden},
	}
	for _, tt := range tests {
		w := call(r, tokenFor(t, tt.role))
		assert.Equal(t, tt.status, w.Code, tt.role)
	}
}

func TestRequireRoles(t *testing.T) {
	r := protectedRouter(RequireRoles(models.UserRoleADMIN))

	assert.Equal(t, http.StatusOK, call(r, tokenFor(t, models.UserRoleADMIN)).Code)
	w := call(r, tokenFor(t, models.UserRoleJE))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSION")
}
