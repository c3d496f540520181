package handlers

import (
	"errors"
	"net/http"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/handlers/render"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/reqctx"
)

type actionRequestResponse struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Status string `json:"status"`
}

// handleCreateActionRequest accepts a signed action token (the email
// verification link payload) and starts the verification flow. The
// request is tracked under the caller's correlation id, so the caller
// polls GET /auth/action-requests/{that id} for the outcome.
func handleCreateActionRequest(requests actionRequestService, reader actionRequestReader, l logger.Logger) http.Handler {
	type request struct {
		Token string `json:"token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		requestID, err := domain.ParseId(reqctx.RequestID(r.Context()))
		if err != nil {
			l.Error("request without usable correlation id", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		err = requests.Create(r.Context(), data.Token, requestID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidToken),
				errors.Is(err, apperrors.ErrUnauthorized),
				errors.Is(err, apperrors.ErrTokenIsUsed),
				errors.Is(err, apperrors.ErrTokenExpired):
				render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
			default:
				l.Error("create action request failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		projection, err := reader.Build(r.Context(), requestID)
		if err != nil {
			l.Error("project created action request failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, actionRequestResponse{
			ID:     projection.ID,
			Action: projection.Action,
			Status: projection.Status,
		}, http.StatusAccepted)
	})
}

func handleGetActionRequest(reader actionRequestReader, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := domain.ParseId(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Action request not found", http.StatusNotFound)
			return
		}

		projection, err := reader.Build(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrActionRequestNotFound):
				render.ServiceError(w, "Action request not found", http.StatusNotFound)
			default:
				l.Error("project action request failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, actionRequestResponse{
			ID:     projection.ID,
			Action: projection.Action,
			Status: projection.Status,
		})
	})
}
