// Package services provides the business logic layer for Travel Together.
// This file implements the verification-email flow.
package services

import (
	"context"
	"fmt"

	"github.com/parityerror/traveltogether/internal/mail"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/parityerror/traveltogether/internal/security"
)

// NotifyService sends account email. Delivery is best-effort: a request for
// a nonexistent user logs and succeeds, because callers fire it after
// registration and on user demand and neither path should surface a
// target-resolution failure to the requester.
type NotifyService struct {
	userRepo *repository.UserRepository
	mailer   mail.Mailer
	logger   *security.Logger
	baseURL  string
}

// NewNotifyService creates a NotifyService delivering through the given
// mailer. baseURL is the externally reachable site root used in links.
func NewNotifyService(mailer mail.Mailer, logger *security.Logger, baseURL string) *NotifyService {
	return &NotifyService{
		userRepo: repository.NewUserRepository(),
		mailer:   mailer,
		logger:   logger,
		baseURL:  baseURL,
	}
}

const (
	siteName = "Travel Together"
	teamName = "Travel Lovers"
)

// SendVerificationEmail mints a fresh verification token for the user,
// stores it (replacing any outstanding one), and emails a welcome message
// carrying the token and the verification link.
//
// Returns:
//   - error: Storage or delivery failures. An unknown GUID or an account
//     without an email address is logged and returns nil.
func (s *NotifyService) SendVerificationEmail(ctx context.Context, userGUID string) error {
	user, err := s.userRepo.FindByGUID(ctx, userGUID)
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Warn("verification email requested for unknown user " + userGUID)
		return nil
	}
	if user.Email == "" {
		s.logger.Warn("verification email requested for user without address " + userGUID)
		return nil
	}

	token := security.NewToken()
	if err := s.userRepo.SetVerificationToken(ctx, userGUID, token); err != nil {
		return err
	}

	body := fmt.Sprintf(`Hello %s,

Welcome to %s! Before you can start planning trips, please confirm
your email address.

Open this link to verify your account:

    %s/verify/%s/%s

Or paste this code into the login page:

    %s

See you soon,
The %s`,
		user.Firstname, siteName, s.baseURL, user.GUID, token, token, teamName)

	if err := s.mailer.Send(user.Email, "Welcome", body); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	s.logger.SecurityEvent(security.EventVerificationSent, &user.ID, user.Username, "", "", map[string]interface{}{
		"user_guid": userGUID,
	})
	return nil
}
