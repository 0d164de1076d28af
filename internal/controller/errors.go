package controller

import (
	"errors"
	"net/http"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation, core.KindSelfRelation:
		return http.StatusBadRequest
	case core.KindInvalidCredentials, core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case core.KindRelationNotFound:
		return http.StatusForbidden
	case core.KindUserNotFound:
		return http.StatusNotFound
	case core.KindDuplicateRelation, core.KindEmailAlreadyExists:
		return http.StatusConflict
	case core.KindInvalidAmount:
		return http.StatusUnprocessableEntity
	case core.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as JSON. Messages of unclassified and store errors
// are not exposed to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	resp := errorResponse{Error: kind.String()}
	switch kind {
	case core.KindUnknown:
		logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		resp.Message = "Internal server error"
	case core.KindStoreUnavailable:
		logger.Error("Store unavailable",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		w.Header().Set("Retry-After", "1")
		resp.Message = "Service temporarily unavailable, retry later"
	default:
		logger.Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.Stringer("kind", kind),
			zap.Error(err))
		var e *core.Error
		errors.As(err, &e)
		resp.Message = e.Msg
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: core.KindValidation.String(), Message: msg})
}
