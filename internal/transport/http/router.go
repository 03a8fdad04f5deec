package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otp-identity-api/internal/application/auth"
	"github.com/otp-identity-api/internal/application/kyc"
	"github.com/otp-identity-api/internal/application/session"
	"github.com/otp-identity-api/internal/application/user"
	"github.com/otp-identity-api/internal/application/verification"
	"github.com/otp-identity-api/internal/config"
	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/transport/http/handler"
	appmiddleware "github.com/otp-identity-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 for OTP send, verify and login endpoints.
	otpRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	workflow := verification.NewWorkflow(deps.VerificationRepo, deps.Notifier, deps.CodeGenerator, cfg.OTPLength, cfg.OTPTTL)
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo: deps.SessionRepo,
		JWTProvider: deps.JWTProvider,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:          deps.UserRepo,
		PasswordResetRepo: deps.PasswordResetRepo,
		Verifier:          workflow,
		Sessions:          sessionSvc,
		OTPTTL:            cfg.OTPTTL,
		ResetTokenTTL:     cfg.ResetTokenTTL,
	})
	kycSvc := kyc.NewService(kyc.ServiceDeps{
		Store:          deps.ObjectStore,
		Repo:           deps.KYCRepo,
		MaxUploadBytes: cfg.KYCMaxUploadBytes,
	})
	userSvc := user.NewService(deps.UserRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	kycH := handler.NewKYCHandler(kycSvc, cfg.KYCMaxUploadBytes)
	userH := handler.NewUserHandler(userSvc)

	authMw := appmiddleware.Auth(deps.JWTProvider, sessionSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(otpRL.Limit)

			r.Post("/register", authH.Register)
			r.Post("/resend-registration-otp", authH.ResendRegistrationOTP)
			r.Post("/verify-registration-otp", authH.VerifyRegistrationOTP)
			r.Post("/login-otp-send", authH.LoginOTPSend)
			r.Post("/verify-login-otp", authH.VerifyLoginOTP)
			r.Post("/forgot-password", authH.ForgotPassword)
			r.Post("/verify-forgot-password-otp", authH.VerifyForgotPasswordOTP)
			r.Post("/update-password", authH.UpdatePassword)
			r.Post("/login-using-email", authH.LoginUsingEmail)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/logout", authH.Logout)
			r.Get("/get-authenticate-user", authH.CurrentUser)

			r.Post("/user/aadhar-kyc-save", kycH.SaveAadhaar)
			r.Post("/user/pan-kyc-save", kycH.SavePAN)
			r.Get("/user/kyc", kycH.Documents)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/admin/users", userH.List)
				r.Get("/admin/users/{id}", userH.Get)
			})
		})
	})

	return r
}
