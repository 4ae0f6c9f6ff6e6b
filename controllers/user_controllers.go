package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = errors.New("invalid credentials")

type UserController struct {
	DB     *gorm.DB
	Tokens *utils.TokenManager
}

func NewUserController(db *gorm.DB, tokens *utils.TokenManager) *UserController {
	return &UserController{DB: db, Tokens: tokens}
}

// Register creates a back-office account. Admin only.
func (uc *UserController) Register(c *gin.Context) {
	type request struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required,oneof=admin staff driver"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		Name:      req.Name,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  string(hashed),
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, http.StatusConflict, errors.New("email already registered"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{"email": user.Email, "role": user.Role}).Info("user registered")

	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
	})
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := uc.DB.Where("email = ?", email).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}

	token, err := uc.Tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.WithField("email", user.Email).Info("login successful")

	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Login successful",
		"data": gin.H{
			"token":     token,
			"user_role": strings.ToLower(user.Role),
		},
	})
}

// GetProfile -> user from the JWT
func (uc *UserController) GetProfile(c *gin.Context) {
	userID := currentUserID(c)
	if userID == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	var user models.User
	if err := uc.DB.First(&user, *userID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}

func (uc *UserController) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := uc.DB.Order("id ASC").Find(&users).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "All users", users)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid user id"))
		return
	}
	if self := currentUserID(c); self != nil && uint64(*self) == id {
		utils.RespondError(c, http.StatusConflict, errors.New("cannot delete your own account"))
		return
	}

	res := uc.DB.Delete(&models.User{}, id)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, gorm.ErrRecordNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User deleted", gin.H{"user_id": id})
}
