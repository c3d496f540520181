package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
)

const actionRequestKeyPrefix = "ActionRequestModel:v1:"

// Action requests are disposable coordination state, not a ledger:
// one hour is enough for any client polling its verification status
const actionRequestTTL = time.Hour

// ActionRequestRepo stores action request snapshots in redis with a
// bounded TTL.
type ActionRequestRepo struct {
	client *redis.Client
	events repository.EventPublisher
}

func NewActionRequestRepo(client *redis.Client, events repository.EventPublisher) *ActionRequestRepo {
	return &ActionRequestRepo{client: client, events: events}
}

// actionRequestModel is the JSON snapshot of the aggregate's fields
type actionRequestModel struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"createdAt"`
	TokenID   string    `json:"tokenId"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
}

func (r *ActionRequestRepo) Save(ctx context.Context, request *domain.ActionRequest) error {
	model := actionRequestModel{
		ID:        request.ID.String(),
		Status:    string(request.Status),
		Action:    string(request.Action),
		CreatedAt: request.CreatedAt,
		TokenID:   request.Data.TokenID.String(),
		UserID:    request.Data.UserID.String(),
		Email:     request.Data.Email.String(),
	}

	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	err = r.client.Set(ctx, actionRequestKeyPrefix+model.ID, raw, actionRequestTTL).Err()
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	return r.events.Publish(ctx, request.PullEvents()...)
}

func (r *ActionRequestRepo) GetByID(ctx context.Context, id domain.Id) (*domain.ActionRequest, error) {
	raw, err := r.client.Get(ctx, actionRequestKeyPrefix+id.String()).Bytes()

	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrActionRequestNotFound)
	default:
		return nil, fmt.Errorf("cache error: %w", err)
	}

	var model actionRequestModel
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("cache error: %w", err)
	}

	return modelToActionRequest(model)
}

func modelToActionRequest(model actionRequestModel) (*domain.ActionRequest, error) {
	id, err := domain.ParseId(model.ID)
	if err != nil {
		return nil, err
	}

	// Data ids may be absent in older snapshots
	var tokenID, userID domain.Id
	if model.TokenID != "" {
		if tokenID, err = domain.ParseId(model.TokenID); err != nil {
			return nil, err
		}
	}
	if model.UserID != "" {
		if userID, err = domain.ParseId(model.UserID); err != nil {
			return nil, err
		}
	}

	request := &domain.ActionRequest{
		ID:        id,
		Status:    domain.ActionRequestStatus(model.Status),
		Action:    domain.ActionKind(model.Action),
		CreatedAt: model.CreatedAt,
		Data: domain.ActionRequestData{
			TokenID: tokenID,
			UserID:  userID,
		},
	}

	if model.Email != "" {
		email, err := domain.ParseEmail(model.Email)
		if err != nil {
			return nil, err
		}
		request.Data.Email = email
	}

	return request, nil
}
