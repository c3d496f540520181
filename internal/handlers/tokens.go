package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/handlers/render"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/service/token"
)

// handleCreateToken issues tokens: login (password), rotation (refresh
// token) and password reset (email only). Flows that must not reveal
// account existence answer with the CHECK_EMAIL sentinel instead of a
// token id.
func handleCreateToken(issuer tokenIssuer, l logger.Logger) http.Handler {
	type request struct {
		Email            string `json:"email" validate:"required,email"`
		Password         string `json:"password" validate:"omitempty,min=8"`
		RefreshToken     string `json:"refreshToken" validate:"omitempty"`
		Role             string `json:"role" validate:"omitempty,oneof=user admin"`
		InvalidateTokens bool   `json:"invalidateTokens"`
	}
	type response struct {
		ID     string `json:"id,omitempty"`
		Action string `json:"action,omitempty"`
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

		created, err := issuer.CreateToken(r.Context(), token.CreateTokenParams{
			Email:            email,
			Password:         data.Password,
			RefreshToken:     data.RefreshToken,
			Role:             domain.Role(data.Role),
			InvalidateTokens: data.InvalidateTokens,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUnauthorized),
				errors.Is(err, apperrors.ErrTokenIsUsed),
				errors.Is(err, apperrors.ErrTokenExpired):
				render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrForbidden):
				render.ServiceError(w, "Role not allowed", http.StatusForbidden)
			default:
				l.Error("create token failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		// Password-reset issuance (or its silent miss) never returns an
		// addressable id
		if created == nil || created.Type != domain.TokenTypeLogin {
			render.JSONWithStatus(w, response{Action: token.ActionCheckEmail}, http.StatusCreated)
			return
		}

		render.JSONWithStatus(w, response{ID: created.ID.String()}, http.StatusCreated)
	})
}

// handleGetTokenBundle resolves a created token id into the access and
// refresh pair. The refresh secret is readable exactly once.
func handleGetTokenBundle(reader tokenReader, l logger.Logger) http.Handler {
	type response struct {
		Action       string    `json:"action,omitempty"`
		AccessToken  string    `json:"accessToken,omitempty"`
		ExpiresIn    int64     `json:"expiresIn,omitempty"`
		ExpiresAt    time.Time `json:"expiresAt,omitzero"`
		RefreshToken string    `json:"refreshToken,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := domain.ParseEmail(r.URL.Query().Get("email"))
		if err != nil {
			render.ServiceError(w, "Invalid email", http.StatusUnprocessableEntity)
			return
		}

		// Malformed ids look exactly like unknown ones
		tokenID, err := domain.ParseId(r.PathValue("id"))
		if err != nil {
			render.JSON(w, response{Action: token.ActionCheckEmail})
			return
		}

		bundle, err := reader.Build(r.Context(), tokenID, email)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTokenHashNotFound):
				render.ServiceError(w, "Token not found", http.StatusNotFound)
			default:
				l.Error("build token bundle failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			Action:       bundle.Action,
			AccessToken:  bundle.AccessToken,
			ExpiresIn:    bundle.TTLSeconds,
			ExpiresAt:    bundle.ExpiresAt,
			RefreshToken: bundle.RefreshToken,
		})
	})
}
