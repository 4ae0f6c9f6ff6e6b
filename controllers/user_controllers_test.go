package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zedbites/backoffice/controllers"
	"github.com/zedbites/backoffice/database"
	"github.com/zedbites/backoffice/middlewares"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

func setupUserRouter(db *gorm.DB, tokens *utils.TokenManager) *gin.Engine {
	ctrl := controllers.NewUserController(db, tokens)

	r := gin.New()
	r.POST("/login", ctrl.Login)
	auth := r.Group("/admin", middlewares.AuthMiddleware(tokens))
	auth.GET("/profile", ctrl.GetProfile)
	users := auth.Group("/users", middlewares.RequireRole(models.RoleAdmin))
	users.GET("", ctrl.GetAllUsers)
	users.POST("", ctrl.Register)
	users.DELETE("/:user_id", ctrl.DeleteUser)
	return r
}

func login(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := performRequest(r, http.MethodPost, "/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token    string `json:"token"`
		UserRole string `json:"user_role"`
	}
	env := decodeEnvelope(t, w, &data)
	require.True(t, env.Status)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	tokens := utils.NewTokenManager("test-secret", 0)
	r := setupUserRouter(db, tokens)
	_, err := database.EnsureAdmin(db, "Owner", "owner@zedbites.test", "owner-pass")
	require.NoError(t, err)

	adminToken := login(t, r, "owner@zedbites.test", "owner-pass")
	bearer := "Bearer " + adminToken

	w := performRequest(r, http.MethodPost, "/admin/users", map[string]string{
		"name": "Driver One", "email": "driver@zedbites.test", "password": "driver-pass", "role": "driver",
	}, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		UserID uint `json:"user_id"`
	}
	decodeEnvelope(t, w, &created)

	w = performRequest(r, http.MethodPost, "/admin/users", map[string]string{
		"name": "Again", "email": "driver@zedbites.test", "password": "driver-pass", "role": "driver",
	}, "Authorization", bearer)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(r, http.MethodPost, "/admin/users", map[string]string{
		"name": "Chef", "email": "chef@zedbites.test", "password": "chef-pass", "role": "chef",
	}, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/login", map[string]string{"email": "driver@zedbites.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	driverToken := login(t, r, "driver@zedbites.test", "driver-pass")
	w = performRequest(r, http.MethodGet, "/admin/profile", nil, "Authorization", "Bearer "+driverToken)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decodeEnvelope(t, w, &profile)
	assert.Equal(t, "driver@zedbites.test", profile.Email)
	assert.Equal(t, models.RoleDriver, profile.Role)

	w = performRequest(r, http.MethodGet, "/admin/users", nil, "Authorization", "Bearer "+driverToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(r, http.MethodDelete, fmt.Sprintf("/admin/users/%d", created.UserID), nil, "Authorization", bearer)
	assert.Equal(t, http.StatusOK, w.Code)
	w = performRequest(r, http.MethodPost, "/login", map[string]string{"email": "driver@zedbites.test", "password": "driver-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileRequiresToken(t *testing.T) {
	r := setupUserRouter(setupTestDB(t), utils.NewTokenManager("test-secret", 0))

	assert.Equal(t, http.StatusUnauthorized, performRequest(r, http.MethodGet, "/admin/profile", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		performRequest(r, http.MethodGet, "/admin/profile", nil, "Authorization", "Bearer nonsense").Code)
}
