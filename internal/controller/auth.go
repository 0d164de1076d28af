package controller

import (
	"net/http"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/middlewareinternal"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type AuthController struct {
	authService core.AuthService
	tokenTTL    time.Duration
	logger      *zap.Logger
}

func NewAuthController(authService core.AuthService, tokenTTL time.Duration, logger *zap.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

type tokenResponse struct {
	Token string          `json:"token"`
	User  profileResponse `json:"user"`
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		c.logger.Debug("Invalid request format", zap.Error(err))
		badRequest(w, r, "Invalid request format")
		return
	}

	user, token, err := c.authService.Register(r.Context(), request.Username, request.Email, request.Password)
	if err != nil {
		c.logger.Warn("Registration failed",
			zap.String("email", request.Email),
			zap.Error(err))
		writeError(w, r, c.logger, err)
		return
	}

	c.logger.Info("User registered successfully",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	c.setTokenCookie(w, token)
	render.JSON(w, r, tokenResponse{Token: token, User: newProfileResponse(user)})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		c.logger.Debug("Invalid request format", zap.Error(err))
		badRequest(w, r, "Invalid request format")
		return
	}

	user, token, err := c.authService.Login(r.Context(), request.Email, request.Password)
	if err != nil {
		c.logger.Warn("Login failed",
			zap.String("email", request.Email),
			zap.Error(err))
		writeError(w, r, c.logger, err)
		return
	}

	c.logger.Info("User logged in successfully",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	c.setTokenCookie(w, token)
	render.JSON(w, r, tokenResponse{Token: token, User: newProfileResponse(user)})
}

func (c *AuthController) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewareinternal.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.tokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
