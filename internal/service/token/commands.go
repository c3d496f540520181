package token

import (
	"context"
	"fmt"

	"github.com/saaskit/authcore/internal/cqrs"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/eventbus"
)

const CommandCreateEmailVerificationToken = "auth.token.createEmailVerificationToken"

// CreateEmailVerificationTokenCommand is issued by the token saga when
// a user gets a new unverified email address.
type CreateEmailVerificationTokenCommand struct {
	RequestID string
	UserID    domain.Id
	Email     domain.Email
}

func (c CreateEmailVerificationTokenCommand) Name() string {
	return CommandCreateEmailVerificationToken
}

func (c CreateEmailVerificationTokenCommand) CorrelationID() string {
	return c.RequestID
}

// HandleCreateEmailVerificationToken mints an EMAIL_VERIFICATION token
// for the command's user. The signed link JWT is attached to the
// TokenWasCreated payload by the publish-boundary enricher.
func (s *Issuer) HandleCreateEmailVerificationToken(ctx context.Context, cmd cqrs.Command) error {
	c, ok := cmd.(CreateEmailVerificationTokenCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T for %q", cmd, cmd.Name())
	}

	_, err := s.mint(ctx, mintParams{
		typ:    domain.TokenTypeEmailVerification,
		userID: c.UserID,
		ttl:    s.verifyTTL,
		email:  c.Email,
	})
	return err
}

// RegisterVerificationLinkEnricher hooks JWT minting into publication
// of TokenWasCreated for email-verification tokens: the signed link
// crosses into the event payload without the token hash ever leaving
// the system.
func RegisterVerificationLinkEnricher(bus *eventbus.Bus, jwts *JWTManager) {
	bus.Enrich(domain.EventTokenWasCreated, func(ctx context.Context, event *domain.Event) error {
		if event.Data["type"] != string(domain.TokenTypeEmailVerification) {
			return nil
		}

		rawUserID, ok := event.Data["userId"].(string)
		if !ok {
			return fmt.Errorf("token created event %s carries no userId", event.EntityID)
		}
		userID, err := domain.ParseId(rawUserID)
		if err != nil {
			return err
		}

		var email domain.Email
		if raw, ok := event.Data["email"].(string); ok {
			email, err = domain.ParseEmail(raw)
			if err != nil {
				return err
			}
		}

		signed, err := jwts.SignActionToken(domain.TokenTypeEmailVerification, event.EntityID, userID, email)
		if err != nil {
			return err
		}

		event.Data["token"] = signed
		return nil
	})
}
