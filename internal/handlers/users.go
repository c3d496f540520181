package handlers

import (
	"errors"
	"net/http"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/handlers/render"
	"github.com/saaskit/authcore/internal/logger"
)

// handleCreateUser registers a user. Registration is what kicks off the
// email verification chain: the published event makes the token saga
// issue the first verification link.
func handleCreateUser(users userService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		email, err := domain.ParseEmail(data.Email)
		if err != nil {
			render.ServiceError(w, "Invalid email", http.StatusUnprocessableEntity)
			return
		}

		u, err := users.Create(r.Context(), email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrEmailTaken):
				render.ServiceError(w, "Email already registered", http.StatusConflict)
			default:
				l.Error("create user failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, response{ID: u.ID.String(), Email: u.Email.String()}, http.StatusCreated)
	})
}
