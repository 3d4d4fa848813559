// Package services provides the business logic layer for Travel Together.
// This file implements authentication: registration, the three-way login
// decision, and email-verification completion.
package services

import (
	"context"
	"crypto/subtle"

	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/parityerror/traveltogether/internal/security"
)

// AuthStatus is the outcome of an authentication attempt. Login is not a
// yes/no question here: a correct password on an unverified account is its
// own state, which the login handler turns into the verification prompt.
type AuthStatus int

const (
	// AuthRejected covers unknown username and wrong password alike, so the
	// response never reveals which usernames exist.
	AuthRejected AuthStatus = iota
	// AuthNeedsVerification means the password matched but the email address
	// has not been proven yet.
	AuthNeedsVerification
	// AuthAuthenticated means the credentials matched a verified account.
	AuthAuthenticated
)

// AuthResult carries the authentication outcome. User is set for the two
// password-matched states and nil on rejection.
type AuthResult struct {
	Status AuthStatus
	User   *models.User
}

// AuthService handles registration, authentication, and verification.
//
// Security Notes:
//   - Passwords are stored as hex(sha256(salt + password)) with a per-user
//     64-char random salt
//   - Digest and token comparisons are constant-time
//   - Plaintext passwords never reach the repository or the logs
type AuthService struct {
	userRepo *repository.UserRepository
}

// NewAuthService creates and returns a new AuthService instance.
func NewAuthService() *AuthService {
	return &AuthService{
		userRepo: repository.NewUserRepository(),
	}
}

// Register creates an unverified account from validated form input: mints the
// GUID and salt, derives the digest, and inserts the row.
//
// Returns:
//   - *models.User: The created account, ID and Registered populated
//   - error: repository.ErrDuplicateUser when the username is taken
func (s *AuthService) Register(ctx context.Context, form *models.RegisterForm) (*models.User, error) {
	salt, err := security.GenerateSalt()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		GUID:           security.NewGUID(),
		Username:       form.Username,
		Firstname:      form.Firstname,
		Lastname:       form.Lastname,
		Email:          form.Email,
		Salt:           salt,
		HashedPassword: security.HashPassword(salt, form.Password),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a login attempt and classifies it into one of the three
// outcomes. A supplied verification token is only consulted once the password
// has matched; a correct token with a wrong password stays rejected.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - form: Username, password, and the optional token pasted from the
//     welcome email
//
// Returns:
//   - AuthResult: Status plus the user for the password-matched states
//   - error: Database errors only; bad credentials are a status, not an error
func (s *AuthService) Authenticate(ctx context.Context, form *models.LoginForm) (AuthResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, form.Username)
	if err != nil {
		return AuthResult{Status: AuthRejected}, err
	}
	if user == nil {
		// Unknown username and wrong password produce the identical result.
		return AuthResult{Status: AuthRejected}, nil
	}

	if !security.VerifyPassword(user.Salt, user.HashedPassword, form.Password) {
		return AuthResult{Status: AuthRejected}, nil
	}

	if user.Verified {
		if err := s.userRepo.RecordLogin(ctx, user.Username); err != nil {
			return AuthResult{Status: AuthRejected}, err
		}
		return AuthResult{Status: AuthAuthenticated, User: user}, nil
	}

	// Password matched but the account is unverified. If the form carried the
	// outstanding token, verification completes and this login goes through.
	if form.Token != "" && user.VerificationToken != nil &&
		subtle.ConstantTimeCompare([]byte(form.Token), []byte(*user.VerificationToken)) == 1 {
		if err := s.userRepo.MarkVerified(ctx, user.Username); err != nil {
			return AuthResult{Status: AuthRejected}, err
		}
		user.Verified = true
		user.VerificationToken = nil
		return AuthResult{Status: AuthAuthenticated, User: user}, nil
	}

	return AuthResult{Status: AuthNeedsVerification, User: user}, nil
}

// CompleteVerification consumes a verification token reached through the
// emailed link: resolves the user by GUID, checks the token, and marks the
// account verified.
//
// Returns:
//   - *models.User: The verified account
//   - error: repository.ErrNotFound when the GUID is unknown, the account
//     has no outstanding token, or the token does not match
func (s *AuthService) CompleteVerification(ctx context.Context, userGUID, token string) (*models.User, error) {
	user, err := s.userRepo.FindByGUID(ctx, userGUID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.VerificationToken == nil {
		return nil, repository.ErrNotFound
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(*user.VerificationToken)) != 1 {
		return nil, repository.ErrNotFound
	}

	if err := s.userRepo.MarkVerified(ctx, user.Username); err != nil {
		return nil, err
	}
	user.Verified = true
	user.VerificationToken = nil
	return user, nil
}

// ChangePassword verifies the current password and replaces the credential
// with a fresh salt and digest.
//
// Returns:
//   - error: repository.ErrNotFound when the username is unknown or the
//     current password does not match
func (s *AuthService) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil || !security.VerifyPassword(user.Salt, user.HashedPassword, current) {
		return repository.ErrNotFound
	}

	salt, err := security.GenerateSalt()
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, username, salt, security.HashPassword(salt, next))
}
