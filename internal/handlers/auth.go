// Package handlers implements HTTP request handlers for Travel Together.
// This file handles authentication: login with its three outcomes,
// registration, email verification, logout, and password changes.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/parityerror/traveltogether/internal/middleware"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/repository"
	"github.com/parityerror/traveltogether/internal/security"
	"github.com/parityerror/traveltogether/internal/services"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	store          *session.Store
	authService    *services.AuthService
	notifyService  *services.NotifyService
	validator      *security.ValidationService
	securityLogger *security.Logger
	secMW          *middleware.SecurityMiddleware
}

// NewAuthHandler creates a new instance of AuthHandler.
//
// Parameters:
//   - store: Session store for managing user sessions
//   - notifyService: Verification-email dispatcher
//   - validator: Input validation service
//   - securityLogger: Logger for security events
//   - secMW: Security middleware, consulted for login rate limits and lockout
func NewAuthHandler(store *session.Store, notifyService *services.NotifyService,
	validator *security.ValidationService, securityLogger *security.Logger,
	secMW *middleware.SecurityMiddleware) *AuthHandler {
	return &AuthHandler{
		store:          store,
		authService:    services.NewAuthService(),
		notifyService:  notifyService,
		validator:      validator,
		securityLogger: securityLogger,
		secMW:          secMW,
	}
}

// ShowLogin renders the login page.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"Title": "Login - Travel Together",
	}, "layouts/blank")
}

// Login authenticates credentials and dispatches on the three outcomes:
// rejection re-renders the form, an unverified account gets the verification
// prompt, and a verified match starts the session.
//
// Form Data:
//   - username, password: Credentials
//   - token: Optional verification token pasted from the welcome email
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	form := models.LoginForm{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Token:    c.FormValue("token"),
	}

	if err := h.validator.ValidateUsername(form.Username); err != nil {
		return c.Render("login", fiber.Map{
			"Error": "Invalid username or password",
		}, "layouts/blank")
	}

	// Per-IP budget and per-account lockout, before touching credentials.
	if err := h.secMW.LoginRateLimit(form.Username, c.IP()); err != nil {
		return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{
			"Error": err.Error(),
		}, "layouts/blank")
	}

	result, err := h.authService.Authenticate(c.UserContext(), &form)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).Render("login", fiber.Map{
			"Error": "Something went wrong, please try again",
		}, "layouts/blank")
	}

	switch result.Status {
	case services.AuthAuthenticated:
		sess, err := h.store.Get(c)
		if err != nil {
			return err
		}
		sess.Set("username", result.User.Username)
		sess.Set("user_guid", result.User.GUID)
		if err := sess.Save(); err != nil {
			return err
		}

		h.secMW.RecordLoginSuccess(result.User.Username, c.IP(), result.User.ID)
		return c.Redirect("/")

	case services.AuthNeedsVerification:
		h.securityLogger.SecurityEvent(security.EventLoginUnverified,
			&result.User.ID, result.User.Username, c.IP(), c.Get("User-Agent"), nil)

		return c.Render("verify", fiber.Map{
			"Title":    "Verify your email - Travel Together",
			"UserGUID": result.User.GUID,
			"Message":  "Your email address has not been verified yet. Check your inbox for the welcome email, or request a new one.",
		}, "layouts/blank")

	default:
		h.secMW.RecordLoginFailure(form.Username, c.IP())
		return c.Render("login", fiber.Map{
			"Error": "Invalid username or password",
		}, "layouts/blank")
	}
}

// ShowRegister renders the registration page.
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{
		"Title": "Register - Travel Together",
	}, "layouts/blank")
}

// Register creates an account from the registration form and dispatches the
// verification email.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	form := models.RegisterForm{
		Username:  c.FormValue("username"),
		Firstname: c.FormValue("firstname"),
		Lastname:  c.FormValue("lastname"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password"),
	}

	renderError := func(message string) error {
		return c.Render("register", fiber.Map{
			"Error": message,
			"Form":  form,
		}, "layouts/blank")
	}

	if err := h.validator.ValidateUsername(form.Username); err != nil {
		return renderError(err.Error())
	}
	if err := h.validator.ValidatePersonName(form.Firstname); err != nil {
		return renderError(err.Error())
	}
	if err := h.validator.ValidatePersonName(form.Lastname); err != nil {
		return renderError(err.Error())
	}
	if err := h.validator.ValidateEmail(form.Email); err != nil {
		return renderError(err.Error())
	}
	if err := h.validator.ValidatePassword(form.Password); err != nil {
		return renderError(err.Error())
	}

	user, err := h.authService.Register(c.UserContext(), &form)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return renderError("That username is already taken")
		}
		return c.Status(fiber.StatusInternalServerError).
			Render("register", fiber.Map{"Error": "Something went wrong, please try again"}, "layouts/blank")
	}

	h.securityLogger.SecurityEvent(security.EventUserRegister,
		&user.ID, user.Username, c.IP(), c.Get("User-Agent"), nil)

	// Delivery failure must not strand the fresh account; the verify page
	// offers a resend.
	if err := h.notifyService.SendVerificationEmail(c.UserContext(), user.GUID); err != nil {
		h.securityLogger.Error("verification email dispatch failed", err)
	}

	return c.Render("verify", fiber.Map{
		"Title":    "Verify your email - Travel Together",
		"UserGUID": user.GUID,
		"Message":  "Account created. We sent a welcome email with your verification link.",
	}, "layouts/blank")
}

// Verify consumes the emailed verification link. Verification doubles as the
// first login, so a session is started on success.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	userGUID := c.Params("guid")
	token := c.Params("token")

	if err := h.validator.ValidateGUID(userGUID); err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}

	user, err := h.authService.CompleteVerification(c.UserContext(), userGUID, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).Render("verify", fiber.Map{
				"Title":   "Verification failed - Travel Together",
				"Message": "That verification link is invalid or was already used. You can request a new one by logging in.",
			}, "layouts/blank")
		}
		return err
	}

	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	sess.Set("username", user.Username)
	sess.Set("user_guid", user.GUID)
	if err := sess.Save(); err != nil {
		return err
	}

	h.securityLogger.SecurityEvent(security.EventVerificationDone,
		&user.ID, user.Username, c.IP(), c.Get("User-Agent"), nil)

	return c.Redirect("/")
}

// ResendVerification sends a fresh verification email on user request.
// Rate-limited at the route level.
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	userGUID := c.FormValue("user_guid")
	if err := h.validator.ValidateGUID(userGUID); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request")
	}

	// Best-effort: an unknown GUID is indistinguishable from success, so the
	// endpoint cannot be used to probe which accounts exist.
	if err := h.notifyService.SendVerificationEmail(c.UserContext(), userGUID); err != nil {
		h.securityLogger.Error("verification email dispatch failed", err)
	}

	return c.Render("verify", fiber.Map{
		"Title":    "Verify your email - Travel Together",
		"UserGUID": userGUID,
		"Message":  "If that account exists, a new welcome email is on its way.",
	}, "layouts/blank")
}

// Logout destroys the session and returns to the login page.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err == nil {
		if username, ok := sess.Get("username").(string); ok {
			h.securityLogger.SecurityEvent(security.EventLogout,
				nil, username, c.IP(), c.Get("User-Agent"), nil)
		}
		_ = sess.Destroy()
	}

	return c.Redirect("/login")
}

// ShowPassword renders the password change page.
func (h *AuthHandler) ShowPassword(c *fiber.Ctx) error {
	return c.Render("password", fiber.Map{
		"Title": "Change password - Travel Together",
	})
}

// ChangePassword rotates the caller's credential after checking the current
// password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	current := c.FormValue("current_password")
	next := c.FormValue("new_password")

	if err := h.validator.ValidatePassword(next); err != nil {
		return c.Render("password", fiber.Map{"Error": err.Error()})
	}

	err := h.authService.ChangePassword(c.UserContext(), username, current, next)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Render("password", fiber.Map{"Error": "Current password is incorrect"})
		}
		return err
	}

	h.securityLogger.SecurityEvent(security.EventPasswordChange,
		nil, username, c.IP(), c.Get("User-Agent"), nil)

	return c.Render("password", fiber.Map{"Success": "Password updated"})
}
