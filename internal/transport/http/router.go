package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/neuroscan-api/internal/application/auth"
	"github.com/neuroscan-api/internal/application/dashboard"
	"github.com/neuroscan-api/internal/application/otp"
	"github.com/neuroscan-api/internal/application/prediction"
	"github.com/neuroscan-api/internal/application/registration"
	"github.com/neuroscan-api/internal/config"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/transport/http/handler"
	appmiddleware "github.com/neuroscan-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
// Background goroutines owned by the router stop when ctx is cancelled.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
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

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	authMw := appmiddleware.Auth(deps.Tokens)

	// 5 requests/second, burst of 10, on endpoints that send mail or check passwords.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)
	// Anonymous inference is expensive: 1 request/second, burst of 5.
	predictRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(1), 5)

	codes := otp.NewManager(deps.OTPs, clk, cfg.OTPTTL)
	regs := registration.NewManager(deps.Registrations, deps.Accounts, clk, cfg.RegistrationTTL)

	authSvc := auth.NewService(auth.ServiceDeps{
		Codes:         codes,
		Registrations: regs,
		Accounts:      deps.Accounts,
		Hasher:        deps.Hasher,
		Tokens:        deps.Tokens,
		Sender:        deps.Sender,
		SendTimeout:   cfg.OTPServiceTimeout,
	})
	predDeps := prediction.ServiceDeps{
		Predictions: deps.Predictions,
		Objects:     deps.Objects,
		Clock:       clk,
	}
	if deps.Classifier != nil {
		predDeps.Classifier = deps.Classifier
	}
	predSvc := prediction.NewService(predDeps)
	dashDeps := dashboard.ServiceDeps{
		Accounts:    deps.Accounts,
		Predictions: deps.Predictions,
		Visitors:    deps.Visitors,
		Clock:       clk,
	}
	if deps.StatsCache != nil {
		dashDeps.Cache = deps.StatsCache
	}
	dashSvc := dashboard.NewService(dashDeps)

	healthH := handler.NewHealthHandler(deps.Health)
	authH := handler.NewAuthHandler(authSvc)
	predH := handler.NewPredictionHandler(predSvc, cfg.MaxUploadBytes)
	dashH := handler.NewDashboardHandler(dashSvc)

	r.Get("/uploads/{filename}", predH.Image)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Check)
		r.Post("/record-visitor", dashH.RecordVisitor)

		r.Route("/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/register", authH.Register)
			r.Post("/verify-otp", authH.VerifyOTP)
			r.With(sensitiveRL.Limit).Post("/login", authH.Login)
			r.With(sensitiveRL.Limit).Post("/forgot-password", authH.ForgotPassword)
			r.Post("/reset-password", authH.ResetPassword)
			r.With(sensitiveRL.Limit).Post("/resend-otp", authH.ResendOTP)
		})

		r.Route("/predict", func(r chi.Router) {
			r.With(predictRL.Limit).Post("/", predH.PredictAnonymous)
			r.With(authMw).Post("/authenticated", predH.PredictAuthenticated)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/public-statistics", dashH.PublicStatistics)

			r.Group(func(r chi.Router) {
				r.Use(authMw)

				r.Get("/predictions", predH.List)
				r.Get("/predictions/{id}", predH.Get)
				r.Get("/user-profile", dashH.Profile)
				r.Get("/statistics", predH.Statistics)
			})
		})
	})

	return r
}
