package controller

import (
	"net/http"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/middlewareinternal"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type RelationController struct {
	relations core.RelationGraph
	logger    *zap.Logger
}

func NewRelationController(relations core.RelationGraph, logger *zap.Logger) *RelationController {
	return &RelationController{
		relations: relations,
		logger:    logger,
	}
}

func (c *RelationController) AddRelation(w http.ResponseWriter, r *http.Request) {
	email, ok := middlewareinternal.GetEmailFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request struct {
		Email string `json:"email"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		badRequest(w, r, "Invalid request format")
		return
	}
	if request.Email == "" {
		badRequest(w, r, "email is required")
		return
	}

	relation, err := c.relations.AddRelation(r.Context(), email, request.Email)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, relationResponse{
		ID:        relation.ID,
		Email:     relation.UserBEmail,
		Status:    string(relation.Status),
		CreatedAt: relation.CreatedAt,
	})
}

func (c *RelationController) GetRelations(w http.ResponseWriter, r *http.Request) {
	email, ok := middlewareinternal.GetEmailFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	emails, err := c.relations.ListRelations(r.Context(), email)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	render.JSON(w, r, emails)
}
