package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Accounts *accounts.Service
	Logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, accts *accounts.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Accounts: accts, Logger: logger}
}

// RegisterRequest represents the request body for patient sign-up.
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,max=64"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone" binding:"omitempty,us_phone"`
}

// Register handles patient sign-up.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Accounts.Register(c.Request.Context(), accounts.SignUp{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Created(c, "User registered successfully", user)
}

// LoginRequest represents the request body for user login. Empty fields
// are reported as VOID_FIELD rather than rejected by binding.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, user, err := h.Accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	switch result {
	case accounts.VoidField:
		utils.BadRequest(c, string(result))
		return
	case accounts.UserDoesNotExist, accounts.InvalidCredentials:
		utils.Unauthorized(c, string(result))
		return
	case accounts.DisabledAccount:
		utils.Forbidden(c, string(result))
		return
	}

	accessToken, refreshTokenString, err := h.issue(user)
	if err != nil {
		h.Logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue tokens")
		utils.InternalServerError(c, "Failed to generate tokens")
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         user,
	})
}

// issue signs a token pair and records the refresh token.
func (h *AuthHandler) issue(user models.User) (string, string, error) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", err
	}
	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(utils.RefreshTTL(h.Cfg)),
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		return "", "", err
	}
	return accessToken, refreshTokenString, nil
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token into a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	claims, err := utils.ValidateToken(req.RefreshToken, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token structure or signature: "+err.Error())
		return
	}

	var storedToken models.RefreshToken
	err = h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", req.RefreshToken, claims.UserID, false, time.Now()).First(&storedToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("refresh token lookup failed")
		utils.InternalServerError(c, "Database error checking refresh token")
		return
	}

	user, err := h.Accounts.Lookup(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if !user.Enabled() {
		utils.Forbidden(c, string(accounts.DisabledAccount))
		return
	}

	if err := h.DB.Model(&storedToken).Update("is_revoked", true).Error; err != nil {
		h.Logger.Error().Err(err).Msg("failed to revoke refresh token")
		utils.InternalServerError(c, "Failed to rotate refresh token")
		return
	}

	accessToken, refreshTokenString, err := h.issue(user)
	if err != nil {
		h.Logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue tokens")
		utils.InternalServerError(c, "Failed to generate new tokens")
		return
	}
	utils.Success(c, "Token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
	})
}

// Logout revokes every refresh token of the acting user.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, _ := middleware.ActingUser(c)
	err := h.DB.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", user.ID, false).
		Update("is_revoked", true).Error
	if err != nil {
		h.Logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke refresh tokens")
		utils.InternalServerError(c, "Failed to log out")
		return
	}
	c.JSON(http.StatusOK, utils.ResponseData{Status: http.StatusOK, Message: "Logged out successfully"})
}

// GetProfile returns the acting user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, _ := middleware.ActingUser(c)
	utils.Success(c, "Profile retrieved successfully", user)
}
