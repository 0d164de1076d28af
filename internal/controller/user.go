package controller

import (
	"net/http"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/middlewareinternal"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type UserController struct {
	userService core.UserService
	logger      *zap.Logger
}

func NewUserController(userService core.UserService, logger *zap.Logger) *UserController {
	return &UserController{
		userService: userService,
		logger:      logger,
	}
}

func (c *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := middlewareinternal.GetEmailFromContext(r.Context())
	if !ok {
		c.logger.Error("User email not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := c.userService.GetProfile(r.Context(), email)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	render.JSON(w, r, newProfileResponse(user))
}

func (c *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := middlewareinternal.GetEmailFromContext(r.Context())
	if !ok {
		c.logger.Error("User email not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		badRequest(w, r, "Invalid request format")
		return
	}

	user, err := c.userService.UpdateProfile(r.Context(), email, core.ProfileUpdate{
		Username: request.Username,
		Email:    request.Email,
		Password: request.Password,
	})
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	render.JSON(w, r, newProfileResponse(user))
}
