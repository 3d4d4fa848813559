// Package main is the entry point for the Travel Together application.
// It loads configuration, connects the database, runs migrations, and wires
// all HTTP routes behind their authentication and capability gates.
package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/parityerror/traveltogether/internal/config"
	"github.com/parityerror/traveltogether/internal/database"
	"github.com/parityerror/traveltogether/internal/handlers"
	"github.com/parityerror/traveltogether/internal/mail"
	"github.com/parityerror/traveltogether/internal/middleware"
	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/security"
	"github.com/parityerror/traveltogether/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Database pool and schema
	if err := database.Connect(nil); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.RunMigrations(database.MigrationsSource, cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Security components
	securityConfig := security.DefaultSecurityConfig()
	securityConfig.SessionSecure = cfg.IsProduction()

	securityLogger := security.NewLogger()

	securityMiddleware := middleware.NewSecurityMiddleware(
		securityLogger,
		securityConfig,
		nil, // alerter, hook up mail or SIEM delivery when needed
	)

	loginRateLimiter := security.NewRateLimiter(
		securityConfig.LoginRateLimit, // 5 requests
		12*time.Second,                // per minute (60s / 5 = 12s refill)
	)
	defer loginRateLimiter.Stop()

	resendRateLimiter := security.NewRateLimiter(
		securityConfig.VerifyEmailRateLimit, // 3 requests
		20*time.Minute,                      // per hour (60min / 3 = 20min refill)
	)
	defer resendRateLimiter.Stop()

	// Mail transport, selected by MAIL_TRANSPORT
	var mailer mail.Mailer
	switch cfg.MailTransport {
	case config.TransportSendmail:
		mailer = mail.NewSendmailMailer(cfg.SendmailPath, cfg.ApplicationEmail)
	default:
		mailer = mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.ApplicationEmail)
	}

	// HTML template engine, loaded from ./web/templates with .html extension.
	// Reload is enabled outside production to auto-refresh template changes.
	engine := html.New("./web/templates", ".html")
	if !cfg.IsProduction() {
		engine.Reload(true)
	}

	app := fiber.New(fiber.Config{
		Views:             engine,
		ViewsLayout:       "layouts/main",
		PassLocalsToViews: true, // Allow middleware to set template variables
	})

	// Panic recovery should be first
	app.Use(recover.New())
	app.Use(securityMiddleware.RequestLogger())
	app.Use(securityMiddleware.SecureHeaders())

	// Static files in ./web/static are accessible at /static/*
	app.Static("/static", "./web/static")

	// Session cookie attributes and expiration all live here; the store is
	// the only writer of the session cookie.
	store := session.New(session.Config{
		Expiration:     securityConfig.SessionTimeout,
		CookieSecure:   securityConfig.SessionSecure,
		CookieHTTPOnly: securityConfig.SessionHTTPOnly,
		CookieSameSite: securityConfig.SessionSameSite,
		CookieName:     securityConfig.SessionCookieName,
		CookiePath:     "/",
	})

	app.Use(securityMiddleware.SetCSRFToken(store))

	// Services and handlers
	validator := security.NewValidationService(securityConfig)
	notifyService := services.NewNotifyService(mailer, securityLogger, cfg.BaseURL)
	tripService := services.NewTripService()

	authHandler := handlers.NewAuthHandler(store, notifyService, validator, securityLogger, securityMiddleware)
	groupHandler := handlers.NewGroupHandler(store, validator, securityLogger, securityConfig)
	tripHandler := handlers.NewTripHandler(store, validator, securityLogger)
	locationHandler := handlers.NewLocationHandler(store, tripService, validator, securityLogger, cfg.MapsAPIKey)

	requireDB := middleware.RequireDatabase(securityConfig.QueryTimeout)

	// ========================================
	// Public Routes (No Authentication)
	// ========================================

	app.Get("/login", authHandler.ShowLogin)
	app.Post("/login",
		securityMiddleware.RateLimit(loginRateLimiter, "login"),
		requireDB,
		authHandler.Login,
	)

	app.Get("/register", authHandler.ShowRegister)
	app.Post("/register", requireDB, authHandler.Register)

	// Verification links arrive by email, so they carry their own proof and
	// need no session.
	app.Get("/verify/:guid/:token", requireDB, authHandler.Verify)
	app.Post("/verify/resend",
		securityMiddleware.RateLimit(resendRateLimiter, "verify_resend"),
		requireDB,
		authHandler.ResendVerification,
	)

	app.Get("/logout", authHandler.Logout)

	// ========================================
	// Authenticated Routes
	// ========================================
	// Everything below requires a session, a reachable database, and CSRF
	// validation on state changes.
	authed := app.Group("/",
		middleware.AuthRequired(store),
		requireDB,
		securityMiddleware.CSRFProtection(store),
	)

	authed.Get("/", tripHandler.Dashboard)

	authed.Get("/password", authHandler.ShowPassword)
	authed.Post("/password", authHandler.ChangePassword)

	// Group management
	authed.Get("/groups", groupHandler.ListGroups)
	authed.Get("/groups/create", groupHandler.ShowCreateGroup)
	authed.Post("/groups", groupHandler.CreateGroup)
	authed.Get("/groups/:guid/members",
		middleware.RequireGroupCapability(tripService, models.CapabilityRead),
		groupHandler.Members,
	)
	authed.Post("/groups/:guid/members",
		middleware.RequireGroupCapability(tripService, models.CapabilityModifyGroup),
		groupHandler.AddMembers,
	)
	authed.Post("/groups/:guid/trips",
		middleware.RequireGroupCapability(tripService, models.CapabilityWrite),
		tripHandler.CreateTrip,
	)
	authed.Post("/groups/:guid/delete",
		middleware.RequireGroupCapability(tripService, models.CapabilityDelete),
		groupHandler.DeleteGroup,
	)

	// Trips and locations
	authed.Get("/trips/:guid",
		middleware.RequireTripCapability(tripService, models.CapabilityRead),
		locationHandler.MapPage,
	)
	authed.Post("/trips/:guid/delete",
		middleware.RequireTripCapability(tripService, models.CapabilityDelete),
		tripHandler.DeleteTrip,
	)
	authed.Post("/trips/:guid/locations",
		middleware.RequireTripCapability(tripService, models.CapabilityWrite),
		locationHandler.AddLocation,
	)
	authed.Post("/trips/:guid/locations/quick",
		middleware.RequireTripCapability(tripService, models.CapabilityWrite),
		locationHandler.QuickAddLocation,
	)
	authed.Post("/trips/:guid/locations/:location/delete",
		middleware.RequireTripCapability(tripService, models.CapabilityDelete),
		locationHandler.DeleteLocation,
	)
	authed.Post("/trips/:guid/order",
		middleware.RequireTripCapability(tripService, models.CapabilityWrite),
		locationHandler.Reorder,
	)

	securityLogger.Info("travel together listening on :" + cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		securityLogger.Critical("Failed to start server", err)
		log.Fatalf("Failed to start server: %v", err)
	}
}
